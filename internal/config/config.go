package config

import "time"

// BrokerConfig is the root configuration of a broker instance.
type BrokerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Session  SessionConfig  `yaml:"session"`
	Liveness LivenessConfig `yaml:"liveness"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Scoring  ScoringConfig  `yaml:"scoring"`
}

// InstanceConfig identifies this broker.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	WSPath            string        `yaml:"ws_path"`
	APIPrefix         string        `yaml:"api_prefix"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	RequireKnownTask  bool          `yaml:"require_known_task"` // Reject websocket upgrades for unknown tasks
}

// SessionConfig configures websocket transports.
type SessionConfig struct {
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadLimit    int64         `yaml:"read_limit"`
	CheckOrigin  bool          `yaml:"check_origin"` // Require Origin to match Host
}

// LivenessConfig configures the liveness sweep.
type LivenessConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// AuthConfig configures access tokens. Exactly one of JWTSecret (HS256)
// or PrivateKeyPath (RS256) must be set.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	PrivateKeyPath string        `yaml:"private_key_path"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	Issuer         string        `yaml:"issuer"`
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"
)

// StorageConfig selects and configures the user/task store.
type StorageConfig struct {
	Backend  string       `yaml:"backend"`
	Postgres DBConfig     `yaml:"postgres"`
	Mongo    MongoConfig  `yaml:"mongo"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SQLiteConfig holds embedded database settings.
type SQLiteConfig struct {
	Path     string `yaml:"path"`
	PoolSize int    `yaml:"pool_size"`
}

// ScoringConfig configures the outcome recorder.
type ScoringConfig struct {
	WinPoints  int           `yaml:"win_points"`
	BufferSize int           `yaml:"buffer_size"` // Initial outcome buffer capacity
	Timeout    time.Duration `yaml:"timeout"`     // Per-outcome store deadline
}
