package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/filter"
	"kasirinaja/backoffice/internal/listing"
	"kasirinaja/backoffice/internal/logging"
	"kasirinaja/backoffice/internal/storectx"
)

var (
	watchFlagValues listFlags
	watchInterval   time.Duration
	metricsAddr     string
)

var watchCmd = &cobra.Command{
	Use:   "watch <screen>",
	Short: "Follow a list screen, reading filter commands from stdin",
	Long: `Follow a list screen and print it whenever a new page arrives.

Commands, one per line on stdin:
  search <text>              free-text search (debounced)
  store <current|all|id>     store filter
  range <kind> [from] [to]   date range
  filter <key>=<value>       screen filter
  toggle <key> [option]      flip one multiselect option, or all of them
  page <n>                   go to page n
  per-page <n>               page size
  sort <field>               sort by field, again to flip the direction
  switch <store id>          change the current store
  reset                      clear every filter
  refresh [--purge]          fetch again, optionally dropping cached pages first
  quit`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchFlagValues.bind(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "refresh this often (0 disables)")
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9464")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	screen, err := a.screen(args[0])
	if err != nil {
		return err
	}
	ctrl, err := newController(a, screen, watchFlagValues)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr, a.gatherer, a.log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	b := newBinding(a, ctrl)
	var printMu sync.Mutex
	b.Subscribe(func(st listing.State) {
		if st.IsFetching {
			return
		}
		printMu.Lock()
		defer printMu.Unlock()
		if st.Err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", st.Err)
			return
		}
		if jsonOutput {
			_ = writeListJSON(out, buildOutput(ctrl, st))
			return
		}
		_ = writeListTable(out, screen, buildOutput(ctrl, st))
	})
	b.Start(ctx)
	defer b.Close()

	lines := make(chan string)
	go scanLines(cmd.InOrStdin(), lines)

	var tick <-chan time.Time
	if watchInterval > 0 {
		t := time.NewTicker(watchInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			b.Refresh()
		case line, ok := <-lines:
			if !ok {
				return b.WaitIdle(ctx)
			}
			quit, err := runCommand(ctx, line, b, a.stores, a.purge)
			if err != nil {
				fmt.Fprintf(errOut, "Error: %v\n", err)
			}
			if quit {
				return b.WaitIdle(ctx)
			}
		}
	}
}

func scanLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

var errUnknownCommand = errors.New("unknown command")

// purgeFunc drops the cached pages of one screen.
type purgeFunc func(ctx context.Context, screen string) (int, error)

// runCommand applies one watch command and reports whether to stop.
func runCommand(ctx context.Context, line string, b *listing.Binding, stores *storectx.Context, purge purgeFunc) (bool, error) {
	ctrl := b.Controller()
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch strings.ToLower(verb) {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "search":
		ctrl.SetSearch(rest)
	case "store":
		sel, err := filter.ParseStoreSelector(rest)
		if err != nil {
			return false, err
		}
		ctrl.SetStore(sel)
	case "range":
		kind, from, to := "", "", ""
		if len(args) > 0 {
			kind = args[0]
		}
		if len(args) > 1 {
			from = args[1]
		}
		if len(args) > 2 {
			to = args[2]
		}
		return false, setRange(ctrl, kind, from, to)
	case "filter":
		return false, setFilter(ctrl, rest)
	case "toggle":
		if len(args) == 0 {
			return false, fmt.Errorf("toggle needs a filter key")
		}
		if len(args) == 1 {
			return false, ctrl.ToggleAllOptions(args[0])
		}
		return false, ctrl.ToggleOption(args[0], args[1])
	case "page":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return false, fmt.Errorf("page must be a number: %q", rest)
		}
		ctrl.SetPage(n)
	case "per-page", "per_page":
		ctrl.SetItemsPerPageText(rest)
	case "sort":
		if !ctrl.SetSort(rest) {
			return false, unsortable(ctrl.Screen(), rest)
		}
	case "switch":
		id, err := domain.ParseStoreID(rest)
		if err != nil {
			return false, err
		}
		return false, stores.Switch(id)
	case "reset":
		ctrl.ResetFilters()
	case "refresh":
		switch rest {
		case "":
		case "--purge":
			if purge == nil {
				return false, errNoCache
			}
			if _, err := purge(ctx, ctrl.Screen().Name); err != nil {
				return false, fmt.Errorf("purge %s: %w", ctrl.Screen().Name, err)
			}
		default:
			return false, fmt.Errorf("refresh takes only --purge, got %q", rest)
		}
		b.Refresh()
	default:
		return false, fmt.Errorf("%w %q", errUnknownCommand, verb)
	}
	return false, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("metrics listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", logging.Err(err))
		}
	}()
	return srv
}
