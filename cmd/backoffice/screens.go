package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kasirinaja/backoffice/internal/screens"
)

var screensCmd = &cobra.Command{
	Use:   "screens",
	Short: "Show the declared list screens and their filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := screens.Load(cfg.ScreensFile)
		if err != nil {
			return err
		}
		list := make([]*screens.Screen, 0)
		for _, name := range registry.Names() {
			s, err := registry.Get(name)
			if err != nil {
				return err
			}
			list = append(list, s)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTITLE\tPATH\tSORTABLE\tFILTERS")
		for _, s := range list {
			filters := make([]string, 0, len(s.Filters))
			for _, f := range s.Filters {
				filters = append(filters, f.Key+" ("+string(f.Type)+")")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				s.Name, s.DisplayTitle(), s.Path, strings.Join(s.Sortable, ","), strings.Join(filters, ", "))
		}
		return w.Flush()
	},
}

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Show the stores of the session and which one is current",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		current := a.stores.Current()
		out := cmd.OutOrStdout()
		if jsonOutput {
			type storeRow struct {
				ID      int64  `json:"id"`
				Name    string `json:"name"`
				Active  bool   `json:"active"`
				Current bool   `json:"current"`
			}
			rows := make([]storeRow, 0)
			for _, s := range a.stores.Stores() {
				rows = append(rows, storeRow{
					ID:      int64(s.ID),
					Name:    s.Name,
					Active:  s.Active,
					Current: current != nil && *current == s.ID,
				})
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tNAME\tSTATUS")
		for _, s := range a.stores.Stores() {
			marker := ""
			if current != nil && *current == s.ID {
				marker = "*"
			}
			status := "inactive"
			if s.Active {
				status = "active"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", marker, s.ID, s.Name, status)
		}
		return w.Flush()
	},
}
