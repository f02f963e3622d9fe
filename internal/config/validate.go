package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *BrokerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if !strings.HasPrefix(c.Server.WSPath, "/") {
		return fmt.Errorf("server.ws_path must start with /, got %q", c.Server.WSPath)
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") {
		return fmt.Errorf("server.api_prefix must start with /, got %q", c.Server.APIPrefix)
	}

	if c.Session.WriteTimeout <= 0 {
		return errors.New("session.write_timeout must be > 0")
	}
	if c.Session.ReadLimit < 1 {
		return errors.New("session.read_limit must be >= 1")
	}

	if c.Liveness.SweepInterval <= 0 {
		return errors.New("liveness.sweep_interval must be > 0")
	}

	if c.Auth.JWTSecret == "" && c.Auth.PrivateKeyPath == "" {
		return errors.New("auth.jwt_secret or auth.private_key_path is required")
	}
	if c.Auth.JWTSecret != "" && c.Auth.PrivateKeyPath != "" {
		return errors.New("auth.jwt_secret and auth.private_key_path are mutually exclusive")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be > 0")
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	case BackendMongo:
		if c.Storage.Mongo.URI == "" {
			return errors.New("storage.mongo.uri is required")
		}
		if c.Storage.Mongo.Database == "" {
			return errors.New("storage.mongo.database is required")
		}
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required")
		}
		if c.Storage.SQLite.PoolSize < 1 {
			return errors.New("storage.sqlite.pool_size must be >= 1")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, postgres, mongo, sqlite, got %q", c.Storage.Backend)
	}

	if c.Scoring.WinPoints < 0 {
		return errors.New("scoring.win_points must be >= 0")
	}
	if c.Scoring.BufferSize < 1 {
		return errors.New("scoring.buffer_size must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
