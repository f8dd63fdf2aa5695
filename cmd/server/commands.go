package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/bloglist/internal/auth"
	"github.com/sakif/bloglist/internal/server"
)

// serveOptions mirrors the serve command's flags.
type serveOptions struct {
	port                int
	dbPath              string
	databaseURL         string
	jwtSecret           string
	tokenTTL            time.Duration
	bcryptCost          int
	enableTestingRoutes bool
	logLevel            string
}

// newRootCmd builds the command tree. Env defaults are read at build time,
// so tests can set them with t.Setenv before calling it.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bloglist",
		Short: "Bloglist - a small REST API for sharing blog links",
		Long: `Bloglist serves a JSON API where registered users post links to blogs
they like and anyone can browse and like them.

Storage is SQLite by default (--db-path) or PostgreSQL when --database-url
is set. Authentication uses bcrypt-hashed passwords and HS256 bearer tokens.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server until SIGINT or SIGTERM.

Every flag falls back to an environment variable:
  --port                   PORT                   (default 8080)
  --db-path                DB_PATH                (default data/bloglist.db)
  --database-url           DATABASE_URL           (PostgreSQL; overrides --db-path)
  --jwt-secret             JWT_SECRET             (required, 16+ characters)
  --token-ttl              TOKEN_TTL              (default 1h)
  --bcrypt-cost            BCRYPT_COST            (default 10)
  --enable-testing-routes  ENABLE_TESTING_ROUTES  (default false)
  --log-level              LOG_LEVEL              (debug, info, warn, error)

Examples:
  JWT_SECRET=... bloglist serve
  bloglist serve --jwt-secret ... --database-url postgres://localhost/bloglist`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}

			cfg, err := opts.config()
			if err != nil {
				return err
			}

			if cfg.DatabaseURL == "" && cfg.DBPath != ":memory:" {
				dir := filepath.Dir(cfg.DBPath)
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("creating database directory %s: %w", dir, err)
				}
			}

			srv, err := server.New(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return srv.Start(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.port, "port", envInt("PORT", 8080), "HTTP listen port")
	f.StringVar(&opts.dbPath, "db-path", envString("DB_PATH", "data/bloglist.db"), "SQLite database file (\":memory:\" for a throwaway store)")
	f.StringVar(&opts.databaseURL, "database-url", envString("DATABASE_URL", ""), "PostgreSQL connection URL; selects the PostgreSQL store")
	f.StringVar(&opts.jwtSecret, "jwt-secret", envString("JWT_SECRET", ""), "HMAC secret for signing tokens")
	f.DurationVar(&opts.tokenTTL, "token-ttl", envDuration("TOKEN_TTL", auth.DefaultTokenTTL), "Token lifetime")
	f.IntVar(&opts.bcryptCost, "bcrypt-cost", envInt("BCRYPT_COST", auth.DefaultCost), "bcrypt work factor")
	f.BoolVar(&opts.enableTestingRoutes, "enable-testing-routes", envBool("ENABLE_TESTING_ROUTES", false), "Mount POST /api/testing/reset")
	f.StringVar(&opts.logLevel, "log-level", envString("LOG_LEVEL", "info"), "Log level")

	return cmd
}

// config turns the parsed flags into a server.Config.
func (o serveOptions) config() (server.Config, error) {
	if o.jwtSecret == "" {
		return server.Config{}, errors.New("a JWT secret is required: set JWT_SECRET or --jwt-secret")
	}

	cfg := server.Config{
		Port:                o.port,
		DBPath:              o.dbPath,
		DatabaseURL:         o.databaseURL,
		JWTSecret:           o.jwtSecret,
		TokenTTL:            o.tokenTTL,
		BcryptCost:          o.bcryptCost,
		EnableTestingRoutes: o.enableTestingRoutes,
	}
	if err := cfg.Validate(); err != nil {
		return server.Config{}, err
	}
	return cfg, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l})), nil
}

// The env helpers return def when the variable is unset or unparsable.

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
