package drilldown

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Source serves the drill-down endpoints.
type Source interface {
	Tools(ctx context.Context) ([]string, error)
	Projects(ctx context.Context, tool string) ([]string, error)
	Steppings(ctx context.Context, tool, project string) ([]string, error)
	Coverage(ctx context.Context, tool, project, stepping string) (Coverage, error)
}

// Load selects sel level by level and fetches every list the selection
// needs concurrently: tools always, projects once a tool is chosen,
// steppings once a project is, and coverage once a stepping is. The first
// failure cancels the remaining fetches.
//
// Every ticket is taken before any fetch starts, so each result applies to
// this request's own State. Requests never share a State; an abandoned
// request is cut short by ctx.
func Load(ctx context.Context, src Source, sel Selection) (View, error) {
	st := NewState()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tools, err := src.Tools(ctx)
		if err != nil {
			return fmt.Errorf("load tools: %w", err)
		}
		st.SetTools(tools)
		return nil
	})

	if sel.Stage() >= ToolSelected {
		t := st.SelectTool(sel.Tool())
		g.Go(func() error {
			projects, err := src.Projects(ctx, t.Selection.Tool())
			if err != nil {
				return fmt.Errorf("load projects for %q: %w", t.Selection.Tool(), err)
			}
			st.ApplyProjects(t, projects)
			return nil
		})
	}

	if sel.Stage() >= ProjectSelected {
		t, _ := st.SelectProject(sel.Project())
		g.Go(func() error {
			s := t.Selection
			steppings, err := src.Steppings(ctx, s.Tool(), s.Project())
			if err != nil {
				return fmt.Errorf("load steppings for %q/%q: %w", s.Tool(), s.Project(), err)
			}
			st.ApplySteppings(t, steppings)
			return nil
		})
	}

	if sel.Stage() == SteppingSelected {
		t, _ := st.SelectStepping(sel.Stepping())
		g.Go(func() error {
			s := t.Selection
			cov, err := src.Coverage(ctx, s.Tool(), s.Project(), s.Stepping())
			if err != nil {
				return fmt.Errorf("load coverage for %q/%q/%q: %w", s.Tool(), s.Project(), s.Stepping(), err)
			}
			st.ApplyCoverage(t, cov)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return View{}, err
	}
	return st.Snapshot(), nil
}
