// Package config wraps *viper.Viper in a small, nil-safe interface so
// the rest of the tree depends on a handful of accessor methods
// instead of viper's full surface.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is a thin, nil-safe wrapper around *viper.Viper.
type Config struct {
	v *viper.Viper
}

// New wraps v. A nil v is valid and behaves like an empty config.
func New(v *viper.Viper) Config {
	return Config{v: v}
}

func (c Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

func (c Config) GetInt(key string) int {
	if c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

func (c Config) GetBool(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

func (c Config) GetDuration(key string) time.Duration {
	if c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

func (c Config) GetStringSlice(key string) []string {
	if c.v == nil {
		return nil
	}
	return c.v.GetStringSlice(key)
}

func (c Config) IsSet(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the config rooted at key. A missing key or a nil
// underlying viper returns an empty (but non-nil) Config rather than
// panicking.
func (c Config) Sub(key string) Config {
	if c.v == nil {
		return Config{}
	}
	sub := c.v.Sub(key)
	return Config{v: sub}
}

func (c Config) Unmarshal(target any) error {
	if c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}
