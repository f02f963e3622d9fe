package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultAddr              = ":8080"
	DefaultWSPath            = "/ws"
	DefaultAPIPrefix         = "/api"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultReadLimit         = 64 << 10
	DefaultSweepInterval     = 30 * time.Second
	DefaultTokenTTL          = 24 * time.Hour
	DefaultIssuer            = "peerlink"
	DefaultBackend           = BackendMemory
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabase     = "peerlink"
	DefaultMongoTimeout      = 10 * time.Second
	DefaultSQLitePath        = "peerlink.db"
	DefaultSQLitePoolSize    = 4
	DefaultWinPoints         = 10
	DefaultScoreBufferSize   = 256
	DefaultScoreTimeout      = 5 * time.Second
)

func (c *BrokerConfig) applyDefaults() {
	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.APIPrefix == "" {
		c.Server.APIPrefix = DefaultAPIPrefix
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Session defaults
	if c.Session.WriteTimeout == 0 {
		c.Session.WriteTimeout = DefaultWriteTimeout
	}
	if c.Session.ReadLimit == 0 {
		c.Session.ReadLimit = DefaultReadLimit
	}

	if c.Liveness.SweepInterval == 0 {
		c.Liveness.SweepInterval = DefaultSweepInterval
	}

	// Auth defaults
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = DefaultTokenTTL
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = DefaultIssuer
	}

	// Storage defaults
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultBackend
	}
	applyDBDefaults(&c.Storage.Postgres)
	if c.Storage.Mongo.URI == "" {
		c.Storage.Mongo.URI = DefaultMongoURI
	}
	if c.Storage.Mongo.Database == "" {
		c.Storage.Mongo.Database = DefaultMongoDatabase
	}
	if c.Storage.Mongo.Timeout == 0 {
		c.Storage.Mongo.Timeout = DefaultMongoTimeout
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = DefaultSQLitePath
	}
	if c.Storage.SQLite.PoolSize == 0 {
		c.Storage.SQLite.PoolSize = DefaultSQLitePoolSize
	}

	// Scoring defaults
	if c.Scoring.WinPoints == 0 {
		c.Scoring.WinPoints = DefaultWinPoints
	}
	if c.Scoring.BufferSize == 0 {
		c.Scoring.BufferSize = DefaultScoreBufferSize
	}
	if c.Scoring.Timeout == 0 {
		c.Scoring.Timeout = DefaultScoreTimeout
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
