package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/coverage.report/internal/indicator"
)

func (a *app) newIndicatorsCmd() *cobra.Command {
	var event string
	cmd := &cobra.Command{
		Use:   "indicators [IP]",
		Short: "Show indicator fill per IP, or the per-IP hits of one event",
		Example: `  covdash indicators            # list IPs
  covdash indicators pcie       # thermometer view for pcie
  covdash indicators --event E10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if strings.TrimSpace(event) != "" {
				breakdowns, err := a.client.EventBreakdowns(cmd.Context())
				if err != nil {
					return fmt.Errorf("event breakdowns: %w", err)
				}
				res := indicator.Search(breakdowns, event, a.cfg.GetPalette())
				if res.State != indicator.SearchFound {
					return fmt.Errorf("event %q not found", strings.TrimSpace(event))
				}
				fmt.Fprintf(out, "Event %s\n", res.EventID)
				tw := newTable(out)
				for _, sl := range res.Slices {
					fmt.Fprintf(tw, "%s\t%d\n", sl.Name, sl.Value)
				}
				return tw.Flush()
			}

			if len(args) == 0 {
				ips, err := a.client.UniqueIPs(cmd.Context())
				if err != nil {
					return fmt.Errorf("unique ips: %w", err)
				}
				for _, ip := range ips {
					fmt.Fprintln(out, ip)
				}
				return nil
			}

			ip := strings.TrimSpace(args[0])
			coverages, err := a.client.Indicators(cmd.Context(), ip)
			if err != nil {
				return fmt.Errorf("indicators for %s: %w", ip, err)
			}
			if len(coverages) == 0 {
				fmt.Fprintln(out, "No coverage data for this IP.")
				return nil
			}
			for _, b := range indicator.Bars(coverages) {
				fmt.Fprintln(out, b.CoverageID)
				for _, ec := range b.Events {
					fmt.Fprintf(out, "  %-12s %s %d/%d\n", ec.Event.EventID, thermometer(ec.Partitions), ec.Event.Hit, ec.Event.Threshold)
				}
			}
			s := indicator.Summarize(coverages)
			fmt.Fprintf(out, "%d of %d events reached threshold; mean fill %.0f%%, lowest %.0f%%\n",
				s.Complete, s.Events, s.MeanFill*100, s.MinFill*100)
			return nil
		},
	}
	cmd.Flags().StringVarP(&event, "event", "e", "", "Exact event id to break down by IP")
	return cmd
}

// thermometer draws partitions as # for filled and . for empty cells.
func thermometer(parts []indicator.Partition) string {
	var b strings.Builder
	b.WriteByte('[')
	for _, p := range parts {
		if p.Filled {
			b.WriteByte('#')
		} else {
			b.WriteByte('.')
		}
	}
	b.WriteByte(']')
	return b.String()
}
