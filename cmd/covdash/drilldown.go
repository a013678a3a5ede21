package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/coverage.report/internal/dashboard"
	"github.com/banshee-data/coverage.report/internal/drilldown"
	"github.com/banshee-data/coverage.report/internal/security"
)

func (a *app) newDrilldownCmd() *cobra.Command {
	var (
		tool, project, stepping string
		pngPath                 string
	)
	cmd := &cobra.Command{
		Use:   "drilldown",
		Short: "Walk tool, project and stepping coverage",
		Long: `drilldown prints the choices for the next unselected level. Once tool,
project and stepping are all given it prints the event coverage and the
latest testcase results, and --png saves the event chart.`,
		Example: `  covdash drilldown
  covdash drilldown --tool sim --project alpha
  covdash drilldown --tool sim --project alpha --stepping A0 --png coverage.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := drilldown.NewSelection(tool, project, stepping)
			if pngPath != "" && sel.Stage() != drilldown.SteppingSelected {
				return fmt.Errorf("--png needs --tool, --project and --stepping")
			}
			v, err := drilldown.Load(cmd.Context(), a.client, sel)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch sel.Stage() {
			case drilldown.NoTool:
				printChoices(out, "Tools", v.Tools)
			case drilldown.ToolSelected:
				printChoices(out, "Projects for "+sel.Tool(), v.Projects)
			case drilldown.ProjectSelected:
				printChoices(out, "Steppings for "+sel.Tool()+"/"+sel.Project(), v.Steppings)
			case drilldown.SteppingSelected:
				if err := printCoverage(out, dashboard.SelectionTitle(sel), v.Coverage); err != nil {
					return err
				}
			}

			if pngPath == "" || v.Coverage == nil {
				return nil
			}
			if err := security.ValidateOutputPath(pngPath); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := dashboard.WriteEventPNG(&buf, dashboard.SelectionTitle(sel), v.Coverage.Events); err != nil {
				return err
			}
			if err := a.fs.WriteFile(pngPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", pngPath, err)
			}
			fmt.Fprintf(out, "Saved %s\n", pngPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tool, "tool", "t", "", "Tool")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project (needs --tool)")
	cmd.Flags().StringVarP(&stepping, "stepping", "s", "", "Stepping (needs --project)")
	cmd.Flags().StringVar(&pngPath, "png", "", "Save the event chart as PNG (needs a full selection)")
	return cmd
}

func printChoices(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, it := range items {
		fmt.Fprintf(w, "  %s\n", it)
	}
}

func printCoverage(w io.Writer, title string, cov *drilldown.Coverage) error {
	fmt.Fprintln(w, title)
	if cov == nil {
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "EVENT\tCOUNT\tTHRESHOLD\tSTATUS")
	for _, e := range cov.Events {
		status := "below"
		if e.Met() {
			status = "met"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", e.Name, e.Count, e.Threshold, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "TESTCASE\tSTATUS\tPLATFORM\tFAILED STEPS\tOVERALL")
	for _, p := range drilldown.TestcasePanels(cov.Testcases, "") {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.Name, p.Status, p.Platform, p.FailedSteps, p.Overall)
	}
	return tw.Flush()
}
