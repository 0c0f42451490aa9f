package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/huangang/basewatch/internal/services/reporting"
)

var ErrUnitNotFound = errors.New("unit not found")

// DashboardService answers read queries over the current store snapshot.
type DashboardService struct {
	reports *ReportService
}

func NewDashboardService(reports *ReportService) *DashboardService {
	return &DashboardService{reports: reports}
}

type DashboardStatsRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// Window parses the request dates. Omitted bounds stay open.
func (r DashboardStatsRequest) Window() (reporting.DateRange, error) {
	return reporting.ParseDateRange(r.StartDate, r.EndDate)
}

type DashboardResponse struct {
	Window reporting.DateRange       `json:"window"`
	Totals reporting.FleetTotals     `json:"totals"`
	All    reporting.AggregateStat   `json:"all"`
	Units  []reporting.AggregateStat `json:"units"`
}

func (s *DashboardService) ListUnits() []reporting.UnitSummary {
	return reporting.ListUnits(s.reports.Reports())
}

// UnitStats fails only when the unit has never reported; an empty window is a
// valid zero result.
func (s *DashboardService) UnitStats(unit string, req *DashboardStatsRequest) (*reporting.AggregateStat, error) {
	window, err := req.Window()
	if err != nil {
		return nil, err
	}
	snapshot := s.reports.Reports()
	if _, ok := reporting.FindUnit(snapshot, unit); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, unit)
	}
	stat := reporting.ComputeStat(snapshot, unit, window)
	return &stat, nil
}

func (s *DashboardService) UnitHistory(unit string) (*reporting.UnitContext, error) {
	snapshot := s.reports.Reports()
	if _, ok := reporting.FindUnit(snapshot, unit); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, unit)
	}
	ctx := reporting.BuildUnitContext(snapshot, unit)
	return &ctx, nil
}

func (s *DashboardService) GetStats(req *DashboardStatsRequest) (*DashboardResponse, error) {
	window, err := req.Window()
	if err != nil {
		return nil, err
	}
	snapshot := s.reports.Reports()
	units := reporting.ComputeGlobal(snapshot, window)
	return &DashboardResponse{
		Window: window,
		Totals: reporting.ComputeFleetTotals(units),
		All:    reporting.ComputeAll(snapshot, window),
		Units:  units,
	}, nil
}

type ViewQuery struct {
	Role      string `form:"role"`
	Unit      string `form:"unit"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type ViewResponse struct {
	Session reporting.Session  `json:"session"`
	View    reporting.RoleView `json:"view"`
}

// View resolves the role label into its views. Entering commander without a
// unit selects the first known unit.
func (s *DashboardService) View(q *ViewQuery) (*ViewResponse, error) {
	role, err := reporting.ParseRole(q.Role)
	if err != nil {
		return nil, err
	}
	window, err := reporting.ParseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}

	snapshot := s.reports.Reports()
	session := reporting.Session{}.Select(q.Unit).Transition(role, reporting.ListUnits(snapshot))
	if unit := strings.TrimSpace(q.Unit); unit != "" && role == reporting.RoleCommander {
		if _, ok := reporting.FindUnit(snapshot, unit); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, unit)
		}
	}

	view, err := reporting.SelectView(snapshot, session.Request(window))
	if err != nil {
		return nil, err
	}
	return &ViewResponse{Session: session, View: view}, nil
}
