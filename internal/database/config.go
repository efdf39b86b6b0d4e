package database

import "time"

// Driver identifies the database engine.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds all settings needed to connect to and pool a database.
type Config struct {
	// Driver is the database engine (e.g. DriverPostgres).
	Driver Driver `yaml:"driver"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"` // postgres only

	// Pool tuning
	MaxConns        int32         `yaml:"max_conns"`          // maximum number of connections in the pool
	MinConns        int32         `yaml:"min_conns"`          // minimum number of idle connections kept alive
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`  // maximum time a connection may be reused
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"` // maximum time a connection may sit idle

	// Timeouts
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // time limit for establishing a new connection
	QueryTimeout   time.Duration `yaml:"query_timeout"`   // per-statement deadline applied by the repositories
}

// DefaultConfig returns pool settings suited to a small API service.
func DefaultConfig(driver Driver) *Config {
	cfg := &Config{
		Driver:          driver,
		Host:            "localhost",
		User:            "entfiles",
		Name:            "projet_est",
		SSLMode:         "disable",
		MaxConns:        25,
		MinConns:        2,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
		QueryTimeout:    15 * time.Second,
	}
	switch driver {
	case DriverMySQL:
		cfg.Port = 3306
	default:
		cfg.Driver = DriverPostgres
		cfg.Port = 5432
	}
	return cfg
}
