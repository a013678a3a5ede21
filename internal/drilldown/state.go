package drilldown

import (
	"strings"
	"sync"
)

// Stage is how far down the drill-down a selection reaches.
type Stage int

const (
	NoTool Stage = iota
	ToolSelected
	ProjectSelected
	SteppingSelected
)

func (s Stage) String() string {
	switch s {
	case ToolSelected:
		return "tool"
	case ProjectSelected:
		return "project"
	case SteppingSelected:
		return "stepping"
	}
	return "none"
}

// Selection is a tool, project and stepping choice. Its fields are only set
// through constructors that drop a project without a tool and a stepping
// without a project.
type Selection struct {
	tool, project, stepping string
}

// NewSelection builds a Selection, discarding any level whose prerequisite
// is empty.
func NewSelection(tool, project, stepping string) Selection {
	return Selection{}.WithTool(tool).WithProject(project).WithStepping(stepping)
}

// WithTool selects tool and clears the project and stepping.
func (s Selection) WithTool(tool string) Selection {
	return Selection{tool: strings.TrimSpace(tool)}
}

// WithProject selects project under the current tool and clears the
// stepping. Without a tool it is a no-op.
func (s Selection) WithProject(project string) Selection {
	if s.tool == "" {
		return s
	}
	return Selection{tool: s.tool, project: strings.TrimSpace(project)}
}

// WithStepping selects stepping under the current project. Without a
// project it is a no-op.
func (s Selection) WithStepping(stepping string) Selection {
	if s.project == "" {
		return s
	}
	return Selection{tool: s.tool, project: s.project, stepping: strings.TrimSpace(stepping)}
}

func (s Selection) Tool() string     { return s.tool }
func (s Selection) Project() string  { return s.project }
func (s Selection) Stepping() string { return s.stepping }

// Stage reports how many levels are selected.
func (s Selection) Stage() Stage {
	switch {
	case s.stepping != "":
		return SteppingSelected
	case s.project != "":
		return ProjectSelected
	case s.tool != "":
		return ToolSelected
	}
	return NoTool
}

// Level names the data a fetch fills in.
type Level int

const (
	LevelProjects Level = iota
	LevelSteppings
	LevelCoverage
	numLevels
)

// Ticket is handed out when a selection starts a fetch. A result is only
// applied while its ticket is still the latest for its level.
type Ticket struct {
	Level     Level
	Selection Selection
	gen       uint64
}

// State holds the drill-down selection and the data loaded for it. Every
// selection change bumps the generation of the levels it invalidates, so a
// response for a superseded selection is dropped even when it arrives last.
type State struct {
	mu        sync.Mutex
	sel       Selection
	gens      [numLevels]uint64
	tools     []string
	projects  []string
	steppings []string
	coverage  *Coverage
}

// NewState returns a State with nothing selected.
func NewState() *State {
	return &State{}
}

func (s *State) bump(from Level) {
	for l := from; l < numLevels; l++ {
		s.gens[l]++
	}
}

func (s *State) ticket(l Level) Ticket {
	return Ticket{Level: l, Selection: s.sel, gen: s.gens[l]}
}

// SetTools replaces the tool list. It never invalidates a selection.
func (s *State) SetTools(tools []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = tools
}

// SelectTool selects tool, clears project, stepping, projects, steppings and
// coverage, and returns the ticket for the project fetch.
func (s *State) SelectTool(tool string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = s.sel.WithTool(tool)
	s.projects, s.steppings, s.coverage = nil, nil, nil
	s.bump(LevelProjects)
	return s.ticket(LevelProjects)
}

// SelectProject selects project, clears stepping, steppings and coverage,
// and returns the ticket for the stepping fetch. ok is false when no tool is
// selected.
func (s *State) SelectProject(project string) (t Ticket, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel.tool == "" {
		return Ticket{}, false
	}
	s.sel = s.sel.WithProject(project)
	s.steppings, s.coverage = nil, nil
	s.bump(LevelSteppings)
	return s.ticket(LevelSteppings), true
}

// SelectStepping selects stepping, clears coverage and returns the ticket
// for the coverage fetch. ok is false when no project is selected.
func (s *State) SelectStepping(stepping string) (t Ticket, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel.project == "" {
		return Ticket{}, false
	}
	s.sel = s.sel.WithStepping(stepping)
	s.coverage = nil
	s.bump(LevelCoverage)
	return s.ticket(LevelCoverage), true
}

func (s *State) current(t Ticket, want Level) bool {
	return t.Level == want && t.gen == s.gens[want]
}

// ApplyProjects stores the project list fetched under t. It reports false
// and changes nothing when t is stale.
func (s *State) ApplyProjects(t Ticket, projects []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(t, LevelProjects) {
		return false
	}
	s.projects = projects
	return true
}

// ApplySteppings stores the stepping list fetched under t.
func (s *State) ApplySteppings(t Ticket, steppings []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(t, LevelSteppings) {
		return false
	}
	s.steppings = steppings
	return true
}

// ApplyCoverage stores the coverage payload fetched under t.
func (s *State) ApplyCoverage(t Ticket, c Coverage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(t, LevelCoverage) {
		return false
	}
	s.coverage = &c
	return true
}

// View is a consistent snapshot of a State.
type View struct {
	Selection Selection
	Tools     []string
	Projects  []string
	Steppings []string
	Coverage  *Coverage
}

// ShowProjects reports whether the project selector is offered.
func (v View) ShowProjects() bool { return v.Selection.Stage() >= ToolSelected }

// ShowSteppings reports whether the stepping selector is offered.
func (v View) ShowSteppings() bool { return v.Selection.Stage() >= ProjectSelected }

// Snapshot returns the current selection and loaded data.
func (s *State) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Selection: s.sel,
		Tools:     s.tools,
		Projects:  s.projects,
		Steppings: s.steppings,
		Coverage:  s.coverage,
	}
}
