package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bcp-export/internal/service"
	"bcp-export/internal/transport/auth"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type runStarted struct {
	RunID string `json:"run_id"`
}

func (h *Handler) startLeads(w http.ResponseWriter, r *http.Request) {
	h.startClientFlow(w, r, "leads", h.flows.StartLeads)
}

func (h *Handler) startEfforts(w http.ResponseWriter, r *http.Request) {
	h.startClientFlow(w, r, "efforts", h.flows.StartEfforts)
}

func (h *Handler) startClientFlow(w http.ResponseWriter, r *http.Request, flow string, start func(ctx context.Context, req service.ClientRequest) (string, error)) {
	email, err := auth.GetUserEmail(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	req, err := ValidateClientRequest(r)
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}
	req.User = email

	id, err := start(r.Context(), *req)
	if err != nil {
		h.startFailed(w, flow, err)
		return
	}
	zap.L().Info("run started", zap.String("flow", flow), zap.String("run_id", id), zap.String("user", email))
	SuccessAccepted(w, flow+" run started", runStarted{RunID: id})
}

func (h *Handler) startAmeyo(w http.ResponseWriter, r *http.Request) {
	email, err := auth.GetUserEmail(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	req, err := ValidateAmeyoRequest(r)
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}
	req.User = email

	id, err := h.flows.StartAmeyo(r.Context(), *req)
	if err != nil {
		h.startFailed(w, "ameyo", err)
		return
	}
	zap.L().Info("run started", zap.String("flow", "ameyo"), zap.String("run_id", id), zap.String("user", email))
	SuccessAccepted(w, "ameyo run started", runStarted{RunID: id})
}

func (h *Handler) startFailed(w http.ResponseWriter, flow string, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownEnvironment), errors.Is(err, service.ErrUnknownClient):
		ErrorBadRequest(w, err.Error())
	default:
		zap.L().Error("start run", zap.String("flow", flow), zap.Error(err))
		ErrorInternal(w, "failed to start "+flow+" run")
	}
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	email, err := auth.GetUserEmail(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	runs, err := h.runs.List(r.Context(), email)
	if err != nil {
		zap.L().Error("list runs", zap.Error(err))
		ErrorInternal(w, "failed to get runs")
		return
	}
	if runs == nil {
		runs = []service.Run{}
	}
	Success(w, "", runs)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	email, err := auth.GetUserEmail(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "run_id")
	if id == "" {
		ErrorBadRequest(w, "run_id is required")
		return
	}
	if !strings.HasPrefix(id, "runs:") {
		id = "runs:" + id
	}

	run, err := h.runs.Get(r.Context(), id, email)
	if err != nil {
		ErrorNotFound(w, "run not found")
		return
	}
	Success(w, "", run)
}
