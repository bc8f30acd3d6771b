package database

import (
	"context"
	"fmt"
	"time"

	"plumbstore/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

const (
	applicationName = "plumbstore"
	pingTimeout     = 5 * time.Second
	maxRetryBackoff = 5 * time.Second
)

// NewPool creates the PostgreSQL pool and waits until the database answers a ping,
// retrying up to cfg.ConnectAttempts times while it starts up.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	logger = logger.With().Str("component", "database").Logger()

	poolConfig, err := poolConfigFrom(cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Int("min_connections", cfg.MinConnections).
		Bool("log_queries", cfg.LogQueries).
		Msg("creating database connection pool")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := waitForDatabase(ctx, pool, cfg.ConnectAttempts, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().Msg("database connection pool created")

	return pool, nil
}

func poolConfigFrom(cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	}
	// Zero keeps the pgxpool defaults.
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	if cfg.LogQueries {
		poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   queryLogger{logger: logger.With().Str("component", "sql").Logger()},
			LogLevel: tracelog.LogLevelDebug,
		}
	}

	return poolConfig, nil
}

// waitForDatabase pings with exponential backoff. attempts below one means a single try.
func waitForDatabase(ctx context.Context, pool interface{ Ping(context.Context) error }, attempts int, logger zerolog.Logger) error {
	if attempts < 1 {
		attempts = 1
	}

	backoff := 500 * time.Millisecond
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", backoff).
			Msg("database not ready")

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}

	return fmt.Errorf("failed to ping database after %d attempt(s): %w", attempts, err)
}

// queryLogger adapts pgx query tracing to zerolog.
type queryLogger struct {
	logger zerolog.Logger
}

func (l queryLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var event *zerolog.Event
	switch level {
	case tracelog.LogLevelError:
		event = l.logger.Error()
	case tracelog.LogLevelWarn:
		event = l.logger.Warn()
	case tracelog.LogLevelInfo:
		event = l.logger.Info()
	default:
		event = l.logger.Debug()
	}
	event.Fields(data).Msg(msg)
}
