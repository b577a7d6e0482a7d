package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/internal/probe"
	"github.com/capitalize-ai/a2ui-playground/internal/service"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
)

// ProbeRunner runs the capability probe.
type ProbeRunner interface {
	Run(ctx context.Context, req probe.Request) (*probe.Report, error)
}

// ConfigHandler handles the settings and capability probe endpoints.
type ConfigHandler struct {
	settings *service.SettingsService
	probe    ProbeRunner
	logger   *logger.Logger
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(settings *service.SettingsService, runner ProbeRunner, log *logger.Logger) *ConfigHandler {
	return &ConfigHandler{
		settings: settings,
		probe:    runner,
		logger:   log,
	}
}

type settingsResponse struct {
	model.Settings
	Configured bool `json:"configured"`
}

// Get handles GET /api/v1/config. The API key is masked.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	current, err := h.settings.Current(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "failed to load settings", err)
		return
	}

	writeJSON(w, http.StatusOK, &settingsResponse{
		Settings:   current.Redacted(),
		Configured: current.Configured(),
	})
}

// Update handles PUT /api/v1/config
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.settings.Update(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, "failed to update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, &settingsResponse{
		Settings:   updated.Redacted(),
		Configured: updated.Configured(),
	})
}

// Probe handles POST /api/v1/probe. Fields missing from the body are taken
// from the current settings.
func (h *ConfigHandler) Probe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req probe.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.settings.Current(ctx)
	if err != nil {
		writeServiceError(w, h.logger, "failed to load settings", err)
		return
	}
	if req.Endpoint == "" {
		req.Endpoint = current.APIEndpoint
	}
	if req.APIKey == "" {
		req.APIKey = current.APIKey
	}
	if req.APIVersion == "" {
		req.APIVersion = current.APIVersion
	}
	if req.Deployment == "" {
		req.Deployment = current.Deployment
	}
	if req.Endpoint == "" || req.APIKey == "" {
		writeError(w, http.StatusPreconditionFailed, service.ErrNotConfigured.Error())
		return
	}

	report, err := h.probe.Run(ctx, req)
	if err != nil {
		h.logger.Warn("capability probe failed", zap.Error(err))
		writeServiceError(w, h.logger, "capability probe failed", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
