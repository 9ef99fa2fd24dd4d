package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Defaults supplies a value for every known key so a config file only
// needs to override what differs from it.
var Defaults = map[string]any{
	"icmp.window":          16,
	"icmp.retries":         3,
	"icmp.timeout":         "5s",
	"trap.port":            162,
	"trap.subscriber_port": 1702,
	"trap.join_multicast":  false,
	"trap.multicast_group": "224.0.0.1",
	"resolver.timeout":     "3s",
	"resolver.cache_size":  512,
	"resolver.cache_ttl":   "5m",
	"admin.addr":           "127.0.0.1:8090",
	"jobconfig.path":       "",
	"probehistory.path":    "",
}

// Load reads path (if non-empty) as the active config file, applies
// Defaults, and allows TNMCORE_-prefixed environment variables to
// override any key (e.g. TNMCORE_TRAP_PORT).
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("tnmcore")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	return New(v), nil
}
