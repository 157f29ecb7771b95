package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lumenlabs/chainflow/pkg/api"
)

type (
	// Config holds configuration settings for the flow tracker
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Supervisor
		TickInterval    time.Duration
		StalenessWindow time.Duration
		Workers         int

		// Probes
		ProbeTimeout        time.Duration
		DefaultToleranceBps int
		Chains              map[api.Chain]ChainConfig

		// Durability
		Snapshot SnapshotConfig

		ShutdownTimeout time.Duration
	}

	// ChainConfig holds the endpoints a chain's status probe queries. The
	// indexer is the fallback source when the node cannot answer
	ChainConfig struct {
		NodeURL    string
		IndexerURL string
	}

	// SnapshotConfig selects and configures the optional flow store
	// durability backend
	SnapshotConfig struct {
		Backend       string
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		RedisPrefix   string
		BlobBucketURL string
		BlobPrefix    string
	}
)

const (
	DefaultAPIHost = "0.0.0.0"
	DefaultAPIPort = 8080
	MaxTCPPort     = 65535

	DefaultTickInterval    = 5 * time.Second
	DefaultStalenessWindow = 30 * time.Minute
	DefaultWorkers         = 8
	DefaultProbeTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisDB     = 0
	DefaultRedisPrefix = "chainflow"

	MaxWorkers      = 1024
	MaxToleranceBps = api.BpsDenominator

	SnapshotBackendNone  = "none"
	SnapshotBackendRedis = "redis"
	SnapshotBackendBlob  = "blob"
)

var (
	ErrInvalidAPIPort         = errors.New("invalid API port")
	ErrInvalidTickInterval    = errors.New("tick interval must be positive")
	ErrInvalidStalenessWindow = errors.New(
		"staleness window must be positive",
	)
	ErrInvalidWorkerCount  = errors.New("worker count must be positive")
	ErrInvalidProbeTimeout = errors.New("probe timeout must be positive")
	ErrInvalidToleranceBps = errors.New(
		"default tolerance must be in [0, 10000] bps",
	)
	ErrInvalidSnapshotBackend = errors.New("invalid snapshot backend")
	ErrChainNodeURLEmpty      = errors.New("chain node URL empty")
)

var validSnapshotBackends = map[string]struct{}{
	SnapshotBackendNone:  {},
	SnapshotBackendRedis: {},
	SnapshotBackendBlob:  {},
}

// NewDefaultConfig creates a configuration with sensible defaults for all
// tracker settings
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:             DefaultAPIHost,
		APIPort:             DefaultAPIPort,
		LogLevel:            "info",
		TickInterval:        DefaultTickInterval,
		StalenessWindow:     DefaultStalenessWindow,
		Workers:             DefaultWorkers,
		ProbeTimeout:        DefaultProbeTimeout,
		DefaultToleranceBps: api.DefaultToleranceBps,
		Chains:              map[api.Chain]ChainConfig{},
		Snapshot: SnapshotConfig{
			Backend:     SnapshotBackendNone,
			RedisAddr:   DefaultRedisAddr,
			RedisDB:     DefaultRedisDB,
			RedisPrefix: DefaultRedisPrefix,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt("WORKERS", &c.Workers, 0, MaxWorkers); err != nil {
		return err
	}
	if err := loadEnvInt(
		"DEFAULT_TOLERANCE_BPS", &c.DefaultToleranceBps,
		-1, MaxToleranceBps,
	); err != nil {
		return err
	}

	if err := loadEnvDuration("TICK_INTERVAL", &c.TickInterval); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"STALENESS_WINDOW", &c.StalenessWindow,
	); err != nil {
		return err
	}
	if err := loadEnvDuration("PROBE_TIMEOUT", &c.ProbeTimeout); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"SHUTDOWN_TIMEOUT", &c.ShutdownTimeout,
	); err != nil {
		return err
	}

	c.loadChainsFromEnv()
	return c.loadSnapshotFromEnv()
}

// loadChainsFromEnv reads the CHAINS list and, per chain name, its
// CHAIN_<NAME>_NODE_URL and CHAIN_<NAME>_INDEXER_URL endpoints
func (c *Config) loadChainsFromEnv() {
	chains := os.Getenv("CHAINS")
	if chains == "" {
		return
	}
	for name := range strings.SplitSeq(chains, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		prefix := "CHAIN_" + strings.ToUpper(name)
		c.Chains[api.Chain(name)] = ChainConfig{
			NodeURL:    os.Getenv(prefix + "_NODE_URL"),
			IndexerURL: os.Getenv(prefix + "_INDEXER_URL"),
		}
	}
}

func (c *Config) loadSnapshotFromEnv() error {
	if backend := os.Getenv("SNAPSHOT_BACKEND"); backend != "" {
		c.Snapshot.Backend = backend
	}
	if addr := os.Getenv("SNAPSHOT_REDIS_ADDR"); addr != "" {
		c.Snapshot.RedisAddr = addr
	}
	if password := os.Getenv("SNAPSHOT_REDIS_PASSWORD"); password != "" {
		c.Snapshot.RedisPassword = password
	}
	if prefix := os.Getenv("SNAPSHOT_REDIS_PREFIX"); prefix != "" {
		c.Snapshot.RedisPrefix = prefix
	}
	if bucketURL := os.Getenv("SNAPSHOT_BLOB_BUCKET_URL"); bucketURL != "" {
		c.Snapshot.BlobBucketURL = bucketURL
	}
	if prefix := os.Getenv("SNAPSHOT_BLOB_PREFIX"); prefix != "" {
		c.Snapshot.BlobPrefix = prefix
	}
	return loadEnvInt("SNAPSHOT_REDIS_DB", &c.Snapshot.RedisDB, -1, 15)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}
	if c.StalenessWindow <= 0 {
		return ErrInvalidStalenessWindow
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkerCount
	}
	if c.ProbeTimeout <= 0 {
		return ErrInvalidProbeTimeout
	}
	if c.DefaultToleranceBps < 0 || c.DefaultToleranceBps > MaxToleranceBps {
		return fmt.Errorf("%w: %d",
			ErrInvalidToleranceBps, c.DefaultToleranceBps)
	}
	if _, ok := validSnapshotBackends[c.Snapshot.Backend]; !ok {
		return fmt.Errorf("%w: %s",
			ErrInvalidSnapshotBackend, c.Snapshot.Backend)
	}
	for chain, cc := range c.Chains {
		if cc.NodeURL == "" {
			return fmt.Errorf("%w: %s", ErrChainNodeURLEmpty, chain)
		}
	}
	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

// loadEnvDuration reads key from the environment, parses it with
// time.ParseDuration, and sets *dst when the value is positive
func loadEnvDuration(key string, dst *time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s: must be positive, got %s", key, d)
	}
	*dst = d
	return nil
}
