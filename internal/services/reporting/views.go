package reporting

import (
	"fmt"
	"strings"
)

// Role is the caller's scope. It is a label supplied from outside and never verified here.
type Role string

const (
	RoleCommander Role = "commander"
	RoleOverseer  Role = "overseer"
)

// ParseRole accepts the two role labels, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCommander:
		return RoleCommander, nil
	case RoleOverseer:
		return RoleOverseer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// ViewRequest carries everything SelectView needs; no selection state lives in the engine.
type ViewRequest struct {
	Role   Role
	Unit   string
	Window DateRange
}

// RoleView holds the populated views for a role. Commander views fill Unit and
// UnitStat; overseer views fill Fleet and Totals.
type RoleView struct {
	Role     Role            `json:"role"`
	Window   DateRange       `json:"window"`
	Unit     *UnitSummary    `json:"unit,omitempty"`
	UnitStat *AggregateStat  `json:"unitStat,omitempty"`
	Fleet    []AggregateStat `json:"fleet,omitempty"`
	Totals   *FleetTotals    `json:"totals,omitempty"`
}

// SelectView maps a role onto the views it sees. A commander without a selected
// unit, or whose unit has no reports, gets an empty unit view.
func SelectView(reports []Report, req ViewRequest) (RoleView, error) {
	view := RoleView{Role: req.Role, Window: req.Window}
	switch req.Role {
	case RoleCommander:
		if req.Unit == "" {
			return view, nil
		}
		stat := ComputeStat(reports, req.Unit, req.Window)
		view.UnitStat = &stat
		if summary, ok := FindUnit(reports, req.Unit); ok {
			view.Unit = &summary
		}
	case RoleOverseer:
		fleet := ComputeGlobal(reports, req.Window)
		totals := ComputeFleetTotals(fleet)
		view.Fleet = fleet
		view.Totals = &totals
	default:
		return RoleView{}, fmt.Errorf("%w: %q", ErrUnknownRole, string(req.Role))
	}
	return view, nil
}

// Session is view-layer selection state: the active role and the selected unit.
// It is a value; each transition returns the next state.
type Session struct {
	Role         Role   `json:"role"`
	SelectedUnit string `json:"selectedUnit,omitempty"`
}

// Transition switches role. Entering commander with nothing selected selects
// the first available unit; this is the engine's only state-dependent effect.
func (s Session) Transition(to Role, units []UnitSummary) Session {
	next := Session{Role: to, SelectedUnit: s.SelectedUnit}
	if to == RoleCommander && next.SelectedUnit == "" && len(units) > 0 {
		next.SelectedUnit = units[0].Name
	}
	return next
}

// Select changes the selected unit without changing role.
func (s Session) Select(unit string) Session {
	return Session{Role: s.Role, SelectedUnit: strings.TrimSpace(unit)}
}

// Request builds the ViewRequest for this session and window.
func (s Session) Request(window DateRange) ViewRequest {
	return ViewRequest{Role: s.Role, Unit: s.SelectedUnit, Window: window}
}
