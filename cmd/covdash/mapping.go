package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/coverage.report/internal/backend"
	"github.com/banshee-data/coverage.report/internal/mapping"
)

func (a *app) newMappingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Inspect coverage mappings and upload mapping sheets",
	}
	cmd.AddCommand(a.newMappingListCmd(), a.newMappingUploadCmd())
	return cmd
}

func (a *app) newMappingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [IP]",
		Short: "List IPs, or the coverage mapping of one IP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				events, err := a.client.ListEvents(cmd.Context())
				if err != nil {
					return fmt.Errorf("list events: %w", err)
				}
				for _, ip := range mapping.DistinctIPs(events) {
					fmt.Fprintln(out, ip)
				}
				return nil
			}

			ip := args[0]
			if err := mapping.ValidateNewIP(ip); err != nil {
				return err
			}
			rows, err := a.client.Mappings(cmd.Context(), strings.TrimSpace(ip))
			if err != nil {
				return fmt.Errorf("mappings for %s: %w", ip, err)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No mappings found")
				return nil
			}

			tw := newTable(out)
			fmt.Fprintln(tw, "COVERAGE ID\tMATCHED\tUNMATCHED\tEVENTS")
			for _, m := range rows {
				matched, unmatched := m.Counts()
				tags := make([]string, len(m.MatchedEvents))
				for i, e := range m.MatchedEvents {
					mark := "-"
					if e.IsMatched {
						mark = "+"
					}
					tags[i] = mark + e.Event
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", m.CoverageID, matched, unmatched, strings.Join(tags, " "))
			}
			return tw.Flush()
		},
	}
}

func (a *app) newMappingUploadCmd() *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:     "upload IP FILE",
		Short:   "Upload an Excel mapping sheet for an IP",
		Example: `  covdash mapping upload pcie coverage.xlsx --sheet "PCIe events"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ip, path := strings.TrimSpace(args[0]), args[1]
			up := mapping.Upload{IP: ip, SheetName: sheet, FileName: filepath.Base(path)}
			if err := up.Validate(); err != nil {
				return err
			}

			f, err := a.fs.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			res, err := a.client.UploadMapping(cmd.Context(), ip, sheet, backend.File{Name: up.FileName, Reader: f})
			if err != nil {
				return fmt.Errorf("%s: %w", mapping.MsgUploadFailed, err)
			}
			msg := res.Message
			if msg == "" {
				msg = mapping.MsgUploaded
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name inside the workbook (required)")
	return cmd
}
