package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// envOverride maps one PROCTOP_ variable to the flag it stands in for.
type envOverride struct {
	envKey string
	flag   string
	apply  func(*Config, string) bool
}

var envOverrides = []envOverride{
	{"INTERVAL", "interval", func(c *Config, v string) bool {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return false
		}
		c.Interval = parsed
		return true
	}},
	{"TOPK", "topk", func(c *Config, v string) bool {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return false
		}
		c.TopK = parsed
		return true
	}},
	{"HIDE_KERNEL", "hide-kernel", func(c *Config, v string) bool {
		parsed, ok := parseBoolEnv(v)
		if ok {
			c.HideKernel = parsed
		}
		return ok
	}},
	{"USER", "user", func(c *Config, v string) bool {
		c.User = v
		return true
	}},
	{"LOG_LEVEL", "log-level", func(c *Config, v string) bool {
		c.LogLevel = v
		return true
	}},
	{"LOG_FILE", "log-file", func(c *Config, v string) bool {
		c.LogFile = v
		return true
	}},
	{"LOG_JSON", "log-json", func(c *Config, v string) bool {
		parsed, ok := parseBoolEnv(v)
		if ok {
			c.LogJSON = parsed
		}
		return ok
	}},
	{"TEXTFILE", "textfile", func(c *Config, v string) bool {
		c.Textfile = v
		return true
	}},
}

// parseBoolEnv accepts true/1/yes and false/0/no, case-insensitive.
func parseBoolEnv(val string) (bool, bool) {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}
	return false, false
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// applyEnvOverrides applies PROCTOP_* values for flags not given on the
// command line. Unparseable values are ignored.
func applyEnvOverrides(cfg *Config, fs *flag.FlagSet) {
	for _, o := range envOverrides {
		if isFlagSet(fs, o.flag) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			if o.apply(cfg, val) {
				cfg.pinned[o.flag] = true
			}
		}
	}
}
