package cli

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/lorekeeper/internal/bootstrap"
	"github.com/Harshitk-cp/lorekeeper/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Session is an open connection plus the service graph built on it.
type Session struct {
	Services *bootstrap.Services
	Pool     *pgxpool.Pool
	Logger   *zap.Logger
}

func (s *Session) Close() {
	if s.Logger != nil {
		_ = s.Logger.Sync()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// Connector opens a Session. Tests substitute one backed by fakes.
type Connector func(ctx context.Context) (*Session, error)

// Connect loads config, dials DATABASE_URL and wires the services.
func Connect(ctx context.Context) (*Session, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	logger, err := config.NewLogger()
	if err != nil {
		return nil, err
	}

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	svcs := bootstrap.New(bootstrap.NewStores(pool), bootstrap.NewClients(logger), logger)
	return &Session{Services: svcs, Pool: pool, Logger: logger}, nil
}
