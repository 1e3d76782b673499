// Package db stores published index documents in SurrealDB and serves them
// back to the index store. Connections auto-reconnect.
package db

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/raphaelgruber/podsearch/internal/config"
)

func init() {
	// WebSocket upgrade needs HTTP/1.1; stop wss:// from negotiating HTTP/2 via ALPN.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Reconnect defaults.
const (
	dialTimeout       = 5 * time.Second
	retryInitialDelay = time.Second
	retryMaxDelay     = 30 * time.Second
	retryMaxAttempts  = 10
)

// Config holds SurrealDB connection configuration.
// Build it from the application config with ConfigFrom.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
}

// auth returns the sign-in credentials for the configured auth level.
// Anything other than "database" signs in as root.
func (c Config) auth() surrealdb.Auth {
	if c.AuthLevel == "database" {
		return surrealdb.Auth{
			Namespace: c.Namespace,
			Database:  c.Database,
			Username:  c.Username,
			Password:  c.Password,
		}
	}
	return surrealdb.Auth{Username: c.Username, Password: c.Password}
}

// baseURL strips the /rpc suffix; gorillaws appends it itself.
func (c Config) baseURL() string {
	return strings.TrimSuffix(c.URL, "/rpc")
}

// Client is a read/publish handle on the index document table.
type Client struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	logger logger.Logger
}

// NewClient connects, signs in and selects the namespace and database.
// The connection re-dials with exponential backoff when it drops.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	sdkLogger := logger.New(log.Handler())

	conn := dial(cfg, sdkLogger)
	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := open(ctx, conn, cfg, sdkLogger)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}

	sdkLogger.Info("SurrealDB connection established", "namespace", cfg.Namespace, "database", cfg.Database)
	return &Client{conn: conn, db: db, logger: sdkLogger}, nil
}

func dial(cfg Config, sdkLogger logger.Logger) *rews.Connection[*gorillaws.Connection] {
	// surrealcbor understands SurrealDB's custom CBOR tags (record ids, datetimes).
	codec := surrealcbor.New()

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			return gorillaws.New(&connection.Config{
				BaseURL:     cfg.baseURL(),
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			}), nil
		},
		dialTimeout,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = retryInitialDelay
	retryer.MaxDelay = retryMaxDelay
	retryer.Multiplier = 2.0
	retryer.MaxRetries = retryMaxAttempts
	conn.Retryer = retryer
	return conn
}

func open(ctx context.Context, conn *rews.Connection[*gorillaws.Connection], cfg Config, sdkLogger logger.Logger) (*surrealdb.DB, error) {
	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("from connection: %w", err)
	}

	sdkLogger.Info("authenticating", "user", cfg.Username, "auth_level", cfg.AuthLevel)
	if _, err := db.SignIn(ctx, cfg.auth()); err != nil {
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("use %s/%s: %w", cfg.Namespace, cfg.Database, err)
	}
	return db, nil
}

// Close closes the SurrealDB connection.
func (c *Client) Close(ctx context.Context) error {
	c.logger.Info("closing SurrealDB connection")
	return c.conn.Close(ctx)
}

// InitSchema defines the index document table. Idempotent.
func (c *Client) InitSchema(ctx context.Context) error {
	c.logger.Info("initializing index document schema")
	if _, err := surrealdb.Query[any](ctx, c.db, SchemaSQL, nil); err != nil {
		return fmt.Errorf("init schema: %w", wrapQueryError(err))
	}
	return nil
}

// Query executes a SurrealQL query with parameters.
func (c *Client) Query(ctx context.Context, sql string, vars map[string]any) (*[]surrealdb.QueryResult[any], error) {
	results, err := surrealdb.Query[any](ctx, c.db, sql, vars)
	return results, wrapQueryError(err)
}

// WipeData deletes every published index document while keeping the schema.
// Tests only.
func (c *Client) WipeData(ctx context.Context) error {
	c.logger.Warn("wiping all index documents")
	if _, err := surrealdb.Query[any](ctx, c.db, "DELETE "+DocumentTable, nil); err != nil {
		return fmt.Errorf("delete %s: %w", DocumentTable, wrapQueryError(err))
	}
	return nil
}

// ConfigFrom extracts the connection settings from the application config.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}
}
