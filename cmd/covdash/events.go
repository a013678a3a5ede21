package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/coverage.report/internal/backend"
	"github.com/banshee-data/coverage.report/internal/coverage"
	"github.com/banshee-data/coverage.report/internal/security"
)

func (a *app) newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List and manage coverage events",
	}
	cmd.AddCommand(
		a.newEventsListCmd(),
		a.newEventsAddCmd(),
		a.newEventsUpdateCmd(),
		a.newEventsDeleteCmd(),
		a.newEventsImportCmd(),
	)
	return cmd
}

// parseFilters reads repeated col=value flags into table filters.
func parseFilters(raw []string) (coverage.Filters, error) {
	f := coverage.Filters{}
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("filter %q must be column=value", kv)
		}
		col, ok := coverage.ParseColumn(strings.TrimSpace(k))
		if !ok || !slices.Contains(coverage.FilterColumns, col) {
			return nil, fmt.Errorf("cannot filter on %q", k)
		}
		f[col] = append(f[col], v)
	}
	return f, nil
}

func (a *app) newEventsListCmd() *cobra.Command {
	var (
		search  string
		filters []string
		sortBy  string
		desc    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the coverage event table",
		Example: `  covdash events list --search pcie --filter event_type=perf --sort event_id
  covdash events list --filter ip=ddr --filter ip=pcie --sort threshold --desc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilters(filters)
			if err != nil {
				return err
			}
			q := coverage.Query{Search: search, Filters: f}
			if sortBy != "" {
				col, ok := coverage.ParseColumn(sortBy)
				if !ok {
					return fmt.Errorf("unknown sort column %q", sortBy)
				}
				q.Sort = coverage.Sort{Column: col, Direction: coverage.Asc}
				if desc {
					q.Sort.Direction = coverage.Desc
				}
			}

			events, err := a.client.ListEvents(cmd.Context())
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			rows := q.Apply(events)

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tEVENT ID\tNAME\tTYPE\tIP\tTHRESHOLD\tHITS\tHEAT")
			for _, e := range rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					e.ID, e.EventID, e.EventName, e.EventType, e.IP, e.Threshold, e.EventCount,
					coverage.HeatmapColor(e.EventCount, e.Threshold).Hex())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d events\n", len(rows), len(events))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive match on event id, name or ip")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Column filter as column=value (event_name, event_type, ip); repeatable")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort column (event_id, event_name, event_type, ip, threshold, event_count)")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	return cmd
}

// formFlags binds the writable event fields to cmd.
func formFlags(cmd *cobra.Command, f *coverage.Form) {
	cmd.Flags().StringVar(&f.EventID, "event-id", "", "Event id")
	cmd.Flags().StringVar(&f.EventName, "name", "", "Event name")
	cmd.Flags().StringVar(&f.EventType, "type", "", "Event type")
	cmd.Flags().StringVar(&f.IP, "ip", "", "IP block")
	cmd.Flags().IntVar(&f.Threshold, "threshold", 0, "Hit threshold (0 or greater)")
}

func (a *app) newEventsAddCmd() *cobra.Command {
	var form coverage.Form
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Create a coverage event",
		Example: `  covdash events add --event-id E42 --name "DMA read" --type perf --ip pcie --threshold 10`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.client.ListEvents(cmd.Context())
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			st := coverage.NewCreate()
			st.Form = form
			e, err := coverage.Upsert(cmd.Context(), a.client, events, st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Event created: %d %s/%s\n", e.ID, e.EventID, e.IP)
			return nil
		},
	}
	formFlags(cmd, &form)
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", s)
	}
	return id, nil
}

func (a *app) newEventsUpdateCmd() *cobra.Command {
	var form coverage.Form
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a coverage event; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			events, err := a.client.ListEvents(cmd.Context())
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			var st coverage.EditState
			found := false
			for _, e := range events {
				if e.ID == id {
					st, found = coverage.EditOf(e), true
					break
				}
			}
			if !found {
				return fmt.Errorf("record %d not found", id)
			}

			changed := cmd.Flags().Changed
			if changed("event-id") {
				st.Form.EventID = form.EventID
			}
			if changed("name") {
				st.Form.EventName = form.EventName
			}
			if changed("type") {
				st.Form.EventType = form.EventType
			}
			if changed("ip") {
				st.Form.IP = form.IP
			}
			if changed("threshold") {
				st.Form.Threshold = form.Threshold
			}

			e, err := coverage.Upsert(cmd.Context(), a.client, events, st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Event updated: %d %s/%s\n", e.ID, e.EventID, e.IP)
			return nil
		},
	}
	formFlags(cmd, &form)
	return cmd
}

func (a *app) newEventsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a coverage event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.DeleteEvent(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete event %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Event %d deleted\n", id)
			return nil
		},
	}
}

func (a *app) newEventsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "import FILE",
		Short:   "Bulk upload events from a CSV file",
		Example: `  covdash template -o events.csv && $EDITOR events.csv && covdash events import events.csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.fs.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			res, err := a.client.BulkUpload(cmd.Context(), backend.File{Name: filepath.Base(args[0]), Reader: f})
			if err != nil {
				return err
			}
			if res.Error != "" {
				return fmt.Errorf("bulk upload rejected: %s", res.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
			return nil
		},
	}
}

func (a *app) newTemplateCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Download the bulk upload CSV template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.Template(cmd.Context())
			if err != nil {
				return fmt.Errorf("download template: %w", err)
			}
			path := output
			if path == "" {
				path = d.Filename
			}
			if err := security.ValidateOutputPath(path); err != nil {
				return err
			}
			if err := a.fs.WriteFile(path, d.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", path, len(d.Body))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: the server-suggested filename)")
	return cmd
}
