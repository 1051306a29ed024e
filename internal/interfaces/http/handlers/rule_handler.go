package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/smartscanon/internal/application/rulebook"
	"github.com/turtacn/smartscanon/internal/domain/rule"
	"github.com/turtacn/smartscanon/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/smartscanon/pkg/types/canon"
	"github.com/turtacn/smartscanon/pkg/types/common"
)

// RuleHandler serves the rule library endpoints.
type RuleHandler struct {
	svc     rulebook.Service
	logger  logging.Logger
	maxBody int64
}

// NewRuleHandler creates a RuleHandler.
func NewRuleHandler(svc rulebook.Service, logger logging.Logger, maxBody int64) *RuleHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RuleHandler{svc: svc, logger: logger.Named("rule_handler"), maxBody: maxBody}
}

// RegisterRoutes mounts the rule endpoints under /rules.
func (h *RuleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/rules", func(rr chi.Router) {
		rr.Get("/", h.List)
		rr.Post("/import", h.Import)
		rr.Get("/lookup", h.Lookup)
	})
}

// Import handles POST /api/v1/rules/import.
func (h *RuleHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req canon.ImportRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	resp, err := h.svc.Import(r.Context(), &req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeData(w, r, http.StatusOK, resp)
}

// List handles GET /api/v1/rules?library=&kind=&page=&page_size=.
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parsePagination(r)
	rules, total, err := h.svc.List(r.Context(), rule.ListFilter{
		Library: q.Get("library"),
		Kind:    rule.Kind(q.Get("kind")),
		Limit:   page.PageSize,
		Offset:  page.Offset(),
	})
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	views := make([]canon.RuleView, 0, len(rules))
	for _, ru := range rules {
		views = append(views, rulebook.ToView(ru))
	}
	page.Total = total
	resp := common.NewPaginatedResponse(views, page)
	resp.RequestID = requestID(r)
	writeJSON(w, http.StatusOK, resp)
}

// Lookup handles GET /api/v1/rules/lookup?pattern=&embedding=.
func (h *RuleHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.svc.Lookup(r.Context(), q.Get("pattern"), q.Get("embedding"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeData(w, r, http.StatusOK, resp)
}

//Personal.AI order the ending
