package rest

import (
	"errors"
	"net/http"

	"bcp-export/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type environmentResponse struct {
	Name string `json:"name"`
}

func (h *Handler) listEnvironments(w http.ResponseWriter, r *http.Request) {
	envs := h.catalog.Environments()
	out := make([]environmentResponse, 0, len(envs))
	for _, e := range envs {
		out = append(out, environmentResponse{Name: e.Name})
	}
	Success(w, "", out)
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	env := chi.URLParam(r, "env")

	list, err := h.catalog.Clients(r.Context(), env)
	if errors.Is(err, service.ErrUnknownEnvironment) {
		ErrorNotFound(w, err.Error())
		return
	}
	if err != nil {
		zap.L().Error("list clients", zap.String("env", env), zap.Error(err))
		ErrorInternal(w, "failed to get clients")
		return
	}
	Success(w, "", list)
}

func (h *Handler) listDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := h.catalog.Databases(r.Context())
	if err != nil {
		zap.L().Error("list cms databases", zap.Error(err))
		ErrorInternal(w, "failed to get databases")
		return
	}
	Success(w, "", dbs)
}
