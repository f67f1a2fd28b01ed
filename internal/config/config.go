package config

import (
	"fmt"
	"time"
)

// Database holds the database configuration
type Database struct {
	Username     string `envconfig:"DB_USERNAME"`
	Password     string `envconfig:"DB_PASSWORD"`
	Host         string `envconfig:"DB_HOST"`
	Port         string `envconfig:"DB_PORT"`
	Database     string `envconfig:"DB_DATABASE"`
	SSLMode      string `envconfig:"DB_SSL_MODE" default:"require"`
	PoolMaxConns int    `envconfig:"DB_POOL_MAX_CONNS" default:"10"`
}

// ToDbConnectionUri returns a connection URI to be used with the pgx package
func (d Database) ToDbConnectionUri() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%d",
		d.Username,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
		d.SSLMode,
		d.PoolMaxConns,
	)
}

// ToMigrationUri returns a connection URI for golang-migrate with pgx5 driver
func (d Database) ToMigrationUri() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
		d.SSLMode,
	)
}

// Redis holds the queue backend configuration
type Redis struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Addr returns the host:port address for the redis client
func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Delivery holds the outbound HTTP client configuration
type Delivery struct {
	ConnectTimeoutMs int `envconfig:"DELIVERY_CONNECT_TIMEOUT_MS" default:"5000"`
	ReadTimeoutMs    int `envconfig:"DELIVERY_READ_TIMEOUT_MS" default:"30000"`
}

// ConnectTimeout returns the dial timeout as a duration
func (d Delivery) ConnectTimeout() time.Duration {
	return time.Duration(d.ConnectTimeoutMs) * time.Millisecond
}

// ReadTimeout returns the full request timeout as a duration
func (d Delivery) ReadTimeout() time.Duration {
	return time.Duration(d.ReadTimeoutMs) * time.Millisecond
}

// Retry holds the retry policy and background loop configuration
type Retry struct {
	MaxRetries               int  `envconfig:"RETRY_MAX_RETRIES" default:"5"`
	BaseDelaySeconds         int  `envconfig:"RETRY_BASE_DELAY_SECONDS" default:"2"`
	Jitter                   bool `envconfig:"RETRY_JITTER" default:"false"`
	SchedulerIntervalSeconds int  `envconfig:"RETRY_SCHEDULER_INTERVAL_SECONDS" default:"10"`
	SweeperIntervalSeconds   int  `envconfig:"SWEEPER_INTERVAL_SECONDS" default:"60"`
	StuckThresholdMinutes    int  `envconfig:"SWEEPER_STUCK_THRESHOLD_MINUTES" default:"5"`
	ResponseBodyLimitBytes   int  `envconfig:"LOG_RESPONSE_BODY_LIMIT" default:"2000"`
	ErrorMessageLimitBytes   int  `envconfig:"LOG_ERROR_MESSAGE_LIMIT" default:"1000"`
}

// SchedulerInterval returns the retry scheduler tick interval
func (r Retry) SchedulerInterval() time.Duration {
	return time.Duration(r.SchedulerIntervalSeconds) * time.Second
}

// SweeperInterval returns the recovery sweeper tick interval
func (r Retry) SweeperInterval() time.Duration {
	return time.Duration(r.SweeperIntervalSeconds) * time.Second
}

// StuckThreshold returns the age past which a PROCESSING task is
// considered abandoned
func (r Retry) StuckThreshold() time.Duration {
	return time.Duration(r.StuckThresholdMinutes) * time.Minute
}

// Server holds the configuration for the API server
type Server struct {
	ServerPort        string `envconfig:"SERVER_PORT" default:"8080"`
	MockTargetEnabled bool   `envconfig:"MOCK_TARGET_ENABLED" default:"false"`
	Database          Database
	Redis             Redis
	Retry             Retry
}

// Worker holds the configuration for the delivery worker process
type Worker struct {
	Database           Database
	Redis              Redis
	Delivery           Delivery
	Retry              Retry
	Concurrency        int `envconfig:"WORKER_CONCURRENCY" default:"4"`
	PollTimeoutSeconds int `envconfig:"WORKER_POLL_TIMEOUT_SECONDS" default:"5"`
}

// PollTimeout returns the blocking-pop timeout as a duration
func (w Worker) PollTimeout() time.Duration {
	return time.Duration(w.PollTimeoutSeconds) * time.Second
}
