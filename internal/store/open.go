package store

import (
	"context"
	"fmt"

	natsclient "github.com/capitalize-ai/a2ui-playground/internal/nats"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string // sqlite, postgres or jetstream
	SQLitePath  string
	DatabaseURL string
	NATS        natsclient.Config
}

// Open creates the store selected by opts.Backend.
func Open(ctx context.Context, opts Options, log *logger.Logger) (Store, error) {
	switch opts.Backend {
	case "", "sqlite":
		return NewSQLiteStore(opts.SQLitePath)
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend requires DATABASE_URL")
		}
		return NewPostgresStore(opts.DatabaseURL)
	case "jetstream":
		client, err := natsclient.Connect(ctx, opts.NATS, log)
		if err != nil {
			return nil, persistenceErr("connect", err)
		}
		s, err := NewJetStreamStore(ctx, natsclient.NewStreamManager(client), log)
		if err != nil {
			client.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", opts.Backend)
	}
}
