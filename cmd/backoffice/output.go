package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/filter"
	"kasirinaja/backoffice/internal/listing"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
)

const maxCellWidth = 40

type listOutput struct {
	Screen     string                  `json:"screen"`
	RequestID  string                  `json:"request_id,omitempty"`
	Params     map[string][]string     `json:"params"`
	Filters    []filter.Badge          `json:"filters"`
	Sort       query.Sort              `json:"sort"`
	Pagination listing.PaginationState `json:"pagination"`
	Items      []domain.Record         `json:"items"`
}

func buildOutput(ctrl *listing.Controller, st listing.State) listOutput {
	out := listOutput{
		Screen:     ctrl.Screen().Name,
		RequestID:  st.RequestID,
		Params:     st.Params,
		Filters:    ctrl.Summary(),
		Sort:       ctrl.Sort(),
		Pagination: ctrl.Pagination(),
		Items:      []domain.Record{},
	}
	if out.Filters == nil {
		out.Filters = []filter.Badge{}
	}
	if st.Data != nil && st.Data.Items != nil {
		out.Items = st.Data.Items
	}
	return out
}

func writeListJSON(w io.Writer, out listOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeListTable(w io.Writer, screen *screens.Screen, out listOutput) error {
	columns := screen.Columns
	if len(columns) == 0 {
		columns = recordKeys(out.Items)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ToUpper(c)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, item := range out.Items {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = cell(item[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p := out.Pagination
	fmt.Fprintf(w, "\n%s: page %d of %d (%d total, %d per page)\n",
		screen.DisplayTitle(), p.CurrentPage, p.TotalPages, p.TotalItems, p.ItemsPerPage)
	if len(out.Filters) > 0 {
		parts := make([]string, 0, len(out.Filters))
		for _, b := range out.Filters {
			parts = append(parts, b.Label+": "+b.Value)
		}
		fmt.Fprintf(w, "Filters: %s\n", strings.Join(parts, "; "))
	}
	return nil
}

func cell(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return "-"
	case float64:
		if val == math.Trunc(val) {
			s = strconv.FormatFloat(val, 'f', 0, 64)
		} else {
			s = strconv.FormatFloat(val, 'f', -1, 64)
		}
	default:
		s = fmt.Sprint(val)
	}
	if len(s) > maxCellWidth {
		s = s[:maxCellWidth-3] + "..."
	}
	return s
}

func recordKeys(items []domain.Record) []string {
	if len(items) == 0 {
		return nil
	}
	keys := make([]string, 0, len(items[0]))
	for k := range items[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
