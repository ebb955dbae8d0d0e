package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tidy/internal/tidyservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *tidyservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *tidyservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Status handles GET /api/status.
//
//	@Summary		Organizer state, target and last status line
//	@Tags			organizer
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status(r.Context()))
}

// Start handles POST /api/organizer/start.
//
//	@Summary		Start organizing a folder in the background
//	@Tags			organizer
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TargetRequest	true	"Folder to organize"
//	@Success		202		{object}	StatusResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/organizer/start [post]
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	// The loop must outlive this request.
	if err := h.svc.Start(context.WithoutCancel(r.Context()), req.Path); err != nil {
		writeError(w, "start organizer", err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.svc.Status(r.Context()))
}

// Stop handles POST /api/organizer/stop.
//
//	@Summary		Stop the background organizer
//	@Tags			organizer
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/organizer/stop [post]
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Stop(r.Context()); err != nil {
		writeError(w, "stop organizer", err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status(r.Context()))
}

// Cycle handles POST /api/organizer/cycle.
//
//	@Summary		Organize a folder once, or wake the running loop
//	@Tags			organizer
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TargetRequest	false	"Folder to organize; empty triggers the running loop"
//	@Success		200		{object}	tidyservice.CycleResult
//	@Success		202		{object}	tidyservice.CycleResult
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/organizer/cycle [post]
func (h *Handler) Cycle(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.Cycle(r.Context(), req.Path)
	if err != nil {
		writeError(w, "organize cycle", err)
		return
	}
	status := http.StatusOK
	if res.Triggered {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

// ListRules handles GET /api/rules.
//
//	@Summary		List rules in priority order
//	@Tags			rules
//	@Produce		json
//	@Success		200	{object}	RuleListResponse
//	@Security		BearerAuth
//	@Router			/rules [get]
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RuleListResponse{Rules: h.svc.Rules(r.Context())})
}

// AddRule handles POST /api/rules.
//
//	@Summary		Append a rule
//	@Tags			rules
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RuleRequest	true	"Rule"
//	@Success		201		{object}	RuleResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rules [post]
func (h *Handler) AddRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	index, rule, err := h.svc.AddRule(r.Context(), req.Keyword, req.Folder)
	if err != nil {
		writeError(w, "add rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, RuleResponse{Index: index, Rule: rule})
}

// UpdateRule handles PUT /api/rules/{index}.
//
//	@Summary		Replace the rule at a position
//	@Tags			rules
//	@Accept			json
//	@Produce		json
//	@Param			index	path		int			true	"Rule position, 0-based"
//	@Param			body	body		RuleRequest	true	"Rule"
//	@Success		200		{object}	RuleResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rules/{index} [put]
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("index must be an integer"))
		return
	}
	var req RuleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rule, err := h.svc.UpdateRule(r.Context(), index, req.Keyword, req.Folder)
	if err != nil {
		writeError(w, "update rule", err)
		return
	}
	writeJSON(w, http.StatusOK, RuleResponse{Index: index, Rule: rule})
}

// RemoveRules handles DELETE /api/rules.
//
//	@Summary		Delete one or more rules
//	@Tags			rules
//	@Accept			json
//	@Param			body	body	RemoveRulesRequest	true	"Positions to delete"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rules [delete]
func (h *Handler) RemoveRules(w http.ResponseWriter, r *http.Request) {
	var req RemoveRulesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.RemoveRules(r.Context(), req.Indices, req.Confirm); err != nil {
		writeError(w, "remove rules", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Classify handles GET /api/classify.
//
//	@Summary		Where would a file with this name go
//	@Tags			rules
//	@Produce		json
//	@Param			name	query		string	true	"File name"
//	@Success		200		{object}	ClassifyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/classify [get]
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Classify(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, "classify", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Buckets handles GET /api/buckets.
//
//	@Summary		Extension categories and their folders
//	@Tags			rules
//	@Produce		json
//	@Success		200	{object}	BucketListResponse
//	@Security		BearerAuth
//	@Router			/buckets [get]
func (h *Handler) Buckets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BucketListResponse{Buckets: h.svc.Buckets(r.Context())})
}

// Activity handles GET /api/activity.
//
//	@Summary		Recent move attempts, optionally filtered
//	@Tags			activity
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			q		query		string	false	"Search file names and folders"
//	@Success		200		{object}	ActivityResponse
//	@Security		BearerAuth
//	@Router			/activity [get]
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := h.svc.Activity(r.Context(), q.Get("q"), limit)
	if err != nil {
		writeError(w, "activity", err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Entries: entries})
}

// ActivityStats handles GET /api/activity/stats.
//
//	@Summary		Files and bytes moved per folder
//	@Tags			activity
//	@Produce		json
//	@Success		200	{object}	ActivityStatsResponse
//	@Security		BearerAuth
//	@Router			/activity/stats [get]
func (h *Handler) ActivityStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.ActivityStats(r.Context())
	if err != nil {
		writeError(w, "activity stats", err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityStatsResponse{Folders: stats})
}
