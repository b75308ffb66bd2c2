package objectstream

// Config loading, wired the way marmos91/dittofs and progressdb-ProgressDB
// layer viper over a plain struct: defaults set programmatically, then
// overridden by file/env/flag in the usual viper precedence order.

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the tunables a deployment typically wants to override
// without recompiling: queue/pool sizing and the two bounded-wait
// durations (write backpressure, demux read timeout).
type Config struct {
	Path                string        `mapstructure:"path"`
	QueueCapacity       int           `mapstructure:"queue_capacity"`
	BufferPoolCapacity  int           `mapstructure:"buffer_pool_capacity"`
	BackpressureTimeout time.Duration `mapstructure:"backpressure_timeout"`
	ReadTimeout         time.Duration `mapstructure:"read_timeout"`
	EmitSyncMarkers     bool          `mapstructure:"emit_sync_markers"`
}

// DefaultConfig's queue capacity, buffer pool capacity and backpressure
// timeout mirror the Writer defaults declared in writer.go.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:       4096,
		BufferPoolCapacity:  4,
		BackpressureTimeout: 0,
		ReadTimeout:         5 * time.Second,
		EmitSyncMarkers:     false,
	}
}

// LoadConfig reads configFile (if non-empty) plus OBJECTSTREAM_-prefixed
// environment variables on top of DefaultConfig, the layering
// marmos91/dittofs's config loader uses.
func LoadConfig(configFile string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("OBJECTSTREAM")
	v.AutomaticEnv()
	v.SetDefault("queue_capacity", cfg.QueueCapacity)
	v.SetDefault("buffer_pool_capacity", cfg.BufferPoolCapacity)
	v.SetDefault("backpressure_timeout", cfg.BackpressureTimeout)
	v.SetDefault("read_timeout", cfg.ReadTimeout)
	v.SetDefault("emit_sync_markers", cfg.EmitSyncMarkers)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
