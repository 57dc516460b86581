package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kasirinaja/backoffice/internal/daterange"
	"kasirinaja/backoffice/internal/filter"
	"kasirinaja/backoffice/internal/listing"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
)

// listFlags are the filter, paging and sort flags shared by list and watch.
type listFlags struct {
	search    string
	store     string
	dateRange string
	from      string
	to        string
	filters   []string
	page      int
	perPage   string
	sort      string
	sortDir   string
	params    string
}

func (f *listFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "free-text search")
	cmd.Flags().StringVar(&f.store, "store", "", "store: current, all or a store id")
	cmd.Flags().StringVar(&f.dateRange, "range", "", "date range: "+rangeKinds())
	cmd.Flags().StringVar(&f.from, "from", "", "custom range start (yyyy-mm-dd)")
	cmd.Flags().StringVar(&f.to, "to", "", "custom range end (yyyy-mm-dd)")
	cmd.Flags().StringArrayVarP(&f.filters, "filter", "f", nil, "screen filter (key=value, repeatable; comma-separated for multiselect)")
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().StringVar(&f.perPage, "per-page", "", "items per page")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort field")
	cmd.Flags().StringVar(&f.sortDir, "sort-dir", "asc", "sort direction: asc or desc")
	cmd.Flags().StringVar(&f.params, "params", "", "raw query parameters applied after every filter rule, e.g. 'store_id=3&status=active'")
}

// overrides parses --params.
func (f listFlags) overrides() (query.Params, error) {
	if strings.TrimSpace(f.params) == "" {
		return nil, nil
	}
	p, err := query.Parse(strings.TrimSpace(f.params))
	if err != nil {
		return nil, fmt.Errorf("invalid --params %q: %w", f.params, err)
	}
	return p, nil
}

// apply sets page last since every other setter returns to page 1.
func (f listFlags) apply(ctrl *listing.Controller) error {
	ctrl.SetSearch(f.search)

	sel, err := filter.ParseStoreSelector(f.store)
	if err != nil {
		return err
	}
	ctrl.SetStore(sel)

	if f.dateRange != "" || f.from != "" || f.to != "" {
		if err := setRange(ctrl, f.dateRange, f.from, f.to); err != nil {
			return err
		}
	}
	for _, raw := range f.filters {
		if err := setFilter(ctrl, raw); err != nil {
			return err
		}
	}
	if f.perPage != "" {
		ctrl.SetItemsPerPageText(f.perPage)
	}
	if f.sort != "" {
		if !ctrl.SortBy(f.sort, query.ParseDirection(f.sortDir)) {
			return unsortable(ctrl.Screen(), f.sort)
		}
	}
	ctrl.SetPage(f.page)
	return nil
}

func setRange(ctrl *listing.Controller, raw string, from string, to string) error {
	kind := daterange.ParseKind(raw)
	if raw == "" && (from != "" || to != "") {
		kind = daterange.KindCustom
	}
	if !kind.Valid() {
		return fmt.Errorf("unknown date range %q (known: %s)", raw, rangeKinds())
	}
	if kind == daterange.KindNone {
		ctrl.SetDateRange(nil)
		return nil
	}
	ctrl.SetDateRange(&daterange.Spec{Kind: kind, Start: from, End: to})
	return nil
}

func rangeKinds() string {
	names := make([]string, 0)
	for _, k := range daterange.Kinds() {
		if k != daterange.KindNone {
			names = append(names, string(k))
		}
	}
	return strings.Join(names, ", ")
}

func setFilter(ctrl *listing.Controller, raw string) error {
	key, value, ok := splitField(raw)
	if !ok {
		return fmt.Errorf("invalid filter %q (expected key=value)", raw)
	}
	cfg, ok := ctrl.Screen().Schema().Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q on %s", filter.ErrUnknownFilter, key, ctrl.Screen().Name)
	}
	v := filter.Scalar(value)
	if cfg.Type == filter.FieldMultiselect {
		v = filter.Multi(splitList(value)...)
	}
	return ctrl.SetCustom(key, v)
}

func unsortable(screen *screens.Screen, field string) error {
	return fmt.Errorf("%s cannot be sorted by %q (sortable: %s)", screen.Name, field, strings.Join(screen.Sortable, ", "))
}

func splitField(s string) (string, string, bool) {
	i := strings.IndexByte(s, '=')
	if i <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newController(a *app, screen *screens.Screen, f listFlags) (*listing.Controller, error) {
	overrides, err := f.overrides()
	if err != nil {
		return nil, err
	}
	ctrl := listing.NewController(screen, a.stores.Current(), listing.ControllerOptions{
		PerPage:    a.cfg.DefaultPerPage,
		MaxPerPage: a.cfg.MaxPerPage,
		Overrides:  overrides,
	})
	if err := f.apply(ctrl); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func newBinding(a *app, ctrl *listing.Controller) *listing.Binding {
	return listing.NewBinding(ctrl, a.source, listing.BindingOptions{
		Debounce: a.cfg.SearchDebounce(),
		Stores:   a.stores,
		Logger:   a.log,
		Metrics:  a.metrics,
	})
}

// fetchOnce loads the page for the controller's current state.
func fetchOnce(ctx context.Context, b *listing.Binding) (listing.State, error) {
	b.Start(ctx)
	defer b.Close()
	if err := b.WaitIdle(ctx); err != nil {
		return listing.State{}, err
	}
	st := b.State()
	return st, st.Err
}

var listFlagValues listFlags

var listCmd = &cobra.Command{
	Use:   "list <screen>",
	Short: "Fetch one page of a list screen",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		screen, err := a.screen(args[0])
		if err != nil {
			return err
		}
		ctrl, err := newController(a, screen, listFlagValues)
		if err != nil {
			return err
		}

		st, err := fetchOnce(cmd.Context(), newBinding(a, ctrl))
		if err != nil {
			return err
		}
		out := buildOutput(ctrl, st)
		if jsonOutput {
			return writeListJSON(cmd.OutOrStdout(), out)
		}
		return writeListTable(cmd.OutOrStdout(), screen, out)
	},
}

func init() {
	listFlagValues.bind(listCmd)
}
