package http

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"aicfo/internal/advice"
	"aicfo/internal/core"
	"aicfo/internal/log"
	"aicfo/internal/services"
)

type dashboardView struct {
	Status  string
	Total   decimal.Decimal
	Count   int
	Bars    []chartBar
	Records []core.Expense
	Advice  *adviceView
}

type adviceView struct {
	Text  string
	Error string
}

func newDashboardView(res services.DashboardResult) dashboardView {
	v := dashboardView{Status: res.Status.String()}
	if res.Status == services.DashboardReady {
		v.Total = res.Overview.Total
		v.Count = res.Overview.Count
		v.Bars = chartBars(res.Overview)
		v.Records = res.Records
	}
	return v
}

// handleDashboard reads the ledger on every load. A failed read renders the
// unavailable state without its cause.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v := newDashboardView(s.pipeline.Dashboard(ctx))
	s.respond(w, r, http.StatusOK, pageDashboard, "dashboard_body", v, v)
}

// handleAdvice asks the model for savings advice on the current ledger.
// Without htmx the whole dashboard is rendered with the advice in place.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var view adviceView
	status := http.StatusOK
	text, err := s.pipeline.Advise(ctx)
	switch {
	case errors.Is(err, advice.ErrNoData):
		view.Error = "No data yet."
	case err != nil:
		s.structured.LogError(ctx, "Advice failed", err, log.OpAdvice, nil)
		view.Error = err.Error()
		status = errorStatus(err)
	default:
		view.Text = text
	}

	if isHTMX(r) {
		s.execute(w, r, status, pageDashboard, "advice", view)
		return
	}
	dv := newDashboardView(s.pipeline.Dashboard(ctx))
	dv.Advice = &view
	s.respond(w, r, status, pageDashboard, "", dv, nil)
}
