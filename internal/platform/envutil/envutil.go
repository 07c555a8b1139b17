package envutil

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var once sync.Once

// V returns the process-wide viper instance. Environment variables are read
// automatically; cobra flags are bound onto the same instance.
func V() *viper.Viper {
	once.Do(func() {
		viper.AutomaticEnv()
	})
	return viper.GetViper()
}

func String(name, def string) string {
	v := strings.TrimSpace(V().GetString(name))
	if v == "" {
		return def
	}
	return v
}

// First returns the first non-empty value among names.
func First(def string, names ...string) string {
	for _, n := range names {
		if v := String(n, ""); v != "" {
			return v
		}
	}
	return def
}

func Int(name string, def int) int {
	raw := String(name, "")
	if raw == "" {
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return i
}

func Float(name string, def float64) float64 {
	raw := String(name, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func Bool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(V().GetString(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// Seconds reads an integer number of seconds.
func Seconds(name string, def time.Duration) time.Duration {
	n := Int(name, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// List splits a comma separated value, dropping empty entries.
func List(name string, def []string) []string {
	raw := String(name, "")
	if raw == "" {
		return def
	}
	out := make([]string, 0, 4)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
