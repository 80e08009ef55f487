package main

import (
	"fmt"
	"time"

	goCaptcha "github.com/MrEthical07/goCaptcha"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

// envConfig is the GOCAPTCHA_* overlay applied before flags. Flags default to
// whatever the environment resolved, so an explicit flag always wins.
type envConfig struct {
	Length        int           `env:"GOCAPTCHA_LENGTH"         envDefault:"6"`
	Exclude       string        `env:"GOCAPTCHA_EXCLUDE"`
	Attempts      int           `env:"GOCAPTCHA_ATTEMPTS"       envDefault:"3"`
	Timeout       time.Duration `env:"GOCAPTCHA_TIMEOUT"        envDefault:"60s"`
	CaseSensitive bool          `env:"GOCAPTCHA_CASE_SENSITIVE" envDefault:"true"`
}

func loadEnv() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return envConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c envConfig) sessionConfig() goCaptcha.SessionConfig {
	s := goCaptcha.DefaultConfig().Session
	s.Length = c.Length
	s.ExcludedGlyphs = c.Exclude
	s.AttemptsTotal = c.Attempts
	s.PerAttemptTimeout = c.Timeout
	s.CaseSensitive = c.CaseSensitive
	return s
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "captchactl",
		Short:         "Render challenges and exercise the goCaptcha engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// A bad overlay fails every subcommand, not just the root.
	cfg, envErr := loadEnv()
	root.PersistentPreRunE = func(*cobra.Command, []string) error { return envErr }

	root.PersistentFlags().IntVar(&cfg.Length, "length", cfg.Length, "challenge length")
	root.PersistentFlags().StringVar(&cfg.Exclude, "exclude", cfg.Exclude, "glyphs never used in challenges")

	root.AddCommand(newRenderCmd(&cfg), newLoadtestCmd(&cfg))
	return root
}
