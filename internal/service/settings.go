package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/capitalize-ai/a2ui-playground/internal/model"
	"github.com/capitalize-ai/a2ui-playground/internal/store"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
)

// SettingsService reads and replaces the current completion settings.
type SettingsService struct {
	store    store.ConfigStore
	defaults model.Settings
	logger   *logger.Logger
}

// NewSettingsService creates a settings service. defaults are returned while
// nothing has been stored.
func NewSettingsService(cs store.ConfigStore, defaults model.Settings, log *logger.Logger) *SettingsService {
	return &SettingsService{store: cs, defaults: defaults, logger: log.Named("settings")}
}

// Current returns the stored settings, falling back to the defaults.
func (s *SettingsService) Current(ctx context.Context) (model.Settings, error) {
	current, err := s.store.GetSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return *current, nil
}

// Update merges req into the current settings and stores the result.
func (s *SettingsService) Update(ctx context.Context, req *model.UpdateSettingsRequest) (model.Settings, error) {
	if err := ValidateSettings(req); err != nil {
		return model.Settings{}, err
	}

	current, err := s.Current(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	next := req.Apply(current)
	if err := s.store.PutSettings(ctx, &next); err != nil {
		return model.Settings{}, fmt.Errorf("failed to store settings: %w", err)
	}

	s.logger.Info("settings updated",
		zap.String("provider", string(next.Provider)),
		zap.String("model", next.Model),
		zap.Bool("configured", next.Configured()),
	)
	return next, nil
}

// ValidateSettings rejects malformed settings updates.
func ValidateSettings(req *model.UpdateSettingsRequest) error {
	switch req.Provider {
	case "", model.ProviderOpenAI, model.ProviderAzure, model.ProviderAnthropic:
	default:
		return &ValidationError{Field: "provider", Message: fmt.Sprintf("unsupported provider %q", req.Provider)}
	}
	if req.APIEndpoint != "" {
		u, err := url.Parse(req.APIEndpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: "api_endpoint", Message: "endpoint must be an absolute http(s) URL"}
		}
	}
	return nil
}
