// Package config loads the server-wide bounds the parameter normaliser
// clamps against (spec.md §4.5), the way the teacher's utils.GetConfig
// loads its own settings: a JSON file read by viper, falling back to
// documented defaults when the file is absent.
package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/amine-amaach/opcua-monitoreditems/internal/monitoreditem"
)

// EngineConfig is the subset of server configuration this module owns.
type EngineConfig struct {
	MinSamplingIntervalMs     float64 `mapstructure:"MIN_SAMPLING_INTERVAL_MS"`
	MaxSamplingIntervalMs     float64 `mapstructure:"MAX_SAMPLING_INTERVAL_MS"`
	DefaultSamplingIntervalMs float64 `mapstructure:"DEFAULT_SAMPLING_INTERVAL_MS"`
	MaxQueueSize              uint32  `mapstructure:"MAX_QUEUE_SIZE"`
	SamplerWorkers            int     `mapstructure:"SAMPLER_WORKERS"`
}

// Load reads ./configs/config.json (if present) and returns an
// EngineConfig with spec.md §4.5's defaults applied for any missing
// field, logging which path was taken.
func Load(log *logrus.Logger) EngineConfig {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath("./configs")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Info("no config file found, using default engine bounds")
		} else {
			log.WithError(err).Warn("config file found but could not be parsed, using defaults")
		}
	} else {
		log.Info("engine config loaded from ./configs/config.json")
	}

	var cfg EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("monitoreditems: unable to decode config: %w", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	b := monitoreditem.DefaultBounds()
	v.SetDefault("MIN_SAMPLING_INTERVAL_MS", b.MinSamplingInterval)
	v.SetDefault("MAX_SAMPLING_INTERVAL_MS", b.MaxSamplingInterval)
	v.SetDefault("DEFAULT_SAMPLING_INTERVAL_MS", b.DefaultSamplingInterval)
	v.SetDefault("MAX_QUEUE_SIZE", b.MaxQueueSize)
	v.SetDefault("SAMPLER_WORKERS", 4)
}

// Bounds converts the loaded config into monitoreditem.Bounds.
func (c EngineConfig) Bounds() monitoreditem.Bounds {
	return monitoreditem.Bounds{
		MinSamplingInterval:     c.MinSamplingIntervalMs,
		MaxSamplingInterval:     c.MaxSamplingIntervalMs,
		DefaultSamplingInterval: c.DefaultSamplingIntervalMs,
		MaxQueueSize:            c.MaxQueueSize,
	}
}
