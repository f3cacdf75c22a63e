package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the settings that can come from the environment. Command-line
// flags override them.
type Config struct {
	BarWidth    int    `env:"MEMTRACKER_BAR_WIDTH" envDefault:"40"`
	Recent      int    `env:"MEMTRACKER_RECENT" envDefault:"5"`
	TraceDB     string `env:"MEMTRACKER_TRACE_DB"`
	JSONTrace   string `env:"MEMTRACKER_JSON_TRACE"`
	LogTrace    bool   `env:"MEMTRACKER_LOG_TRACE" envDefault:"false"`
	Monitor     bool   `env:"MEMTRACKER_MONITOR" envDefault:"false"`
	MonitorPort int    `env:"MEMTRACKER_MONITOR_PORT" envDefault:"0"`
	OpenBrowser bool   `env:"MEMTRACKER_OPEN_BROWSER" envDefault:"false"`
	NoColor     bool   `env:"NO_COLOR" envDefault:"false"`
}

// LoadConfig reads envFile, if it exists, into the process environment and
// then parses the environment. Variables that are already set win over the
// file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}
