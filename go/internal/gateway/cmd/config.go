package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/petitbac/go/internal/dbconfig"
	"github.com/mcdev12/petitbac/go/internal/game"
)

type Config struct {
	bind           string
	port           int
	configFile     string
	idleTimeout    time.Duration
	natsURL        string
	databaseURL    string
	archiveResults bool
	publicURL      string
	rateLimit      float64
	rateBurst      int
	verbose        bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.idleTimeout <= 0 {
		return fmt.Errorf("invalid idle timeout (must be positive): %s", c.idleTimeout)
	}
	if c.rateLimit <= 0 || c.rateBurst < 1 {
		return errors.New("--rate-limit must be positive and --rate-burst at least 1")
	}
	if c.publicURL != "" {
		u, err := url.Parse(c.publicURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid public url (must be an absolute http(s) url): %q", c.publicURL)
		}
	}
	return nil
}

// resultsDSN returns the Postgres DSN of the results archive, or "" when
// archiving is disabled. --archive-results alone falls back to DB_* variables.
func (c *Config) resultsDSN() string {
	if c.databaseURL != "" {
		return c.databaseURL
	}
	if c.archiveResults {
		return dbconfig.NewConfigFromEnv().DSN()
	}
	return ""
}

// loadDefaults reads the game defaults file. Missing keys keep the built-in
// defaults and the result is normalized like a client configuration edit.
func loadDefaults(path string) (*game.Configuration, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game defaults: %w", err)
	}

	defaults := game.DefaultConfiguration()
	if err := yaml.Unmarshal(raw, &defaults); err != nil {
		return nil, fmt.Errorf("failed to parse game defaults %s: %w", path, err)
	}

	normalized := defaults.Request().Normalize()
	if len(normalized.Categories) == 0 {
		return nil, fmt.Errorf("game defaults %s: no categories", path)
	}
	return &normalized, nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PETITBAC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "petitbac-gateway",
		Short:         "Game server for petit bac sessions over WebSocket.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PETITBAC_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8081, "port to listen on (env: PETITBAC_PORT)")
	fs.StringVarP(&cfg.configFile, "config", "c", "", "yaml file with the default game configuration (env: PETITBAC_CONFIG)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", game.DefaultIdleTimeout, "time before sessions without online players are deleted (env: PETITBAC_IDLE_TIMEOUT)")
	fs.StringVar(&cfg.natsURL, "nats-url", "", "mirror game events to this NATS server (env: PETITBAC_NATS_URL)")
	fs.StringVar(&cfg.databaseURL, "database-url", "", "archive finished games to this Postgres database (env: PETITBAC_DATABASE_URL)")
	fs.BoolVar(&cfg.archiveResults, "archive-results", false, "archive finished games using DB_* variables (env: PETITBAC_ARCHIVE_RESULTS)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "public base url of the game client, used in QR codes (env: PETITBAC_PUBLIC_URL)")
	fs.Float64Var(&cfg.rateLimit, "rate-limit", 20, "messages per second accepted from one client (env: PETITBAC_RATE_LIMIT)")
	fs.IntVar(&cfg.rateBurst, "rate-burst", 40, "message burst accepted from one client (env: PETITBAC_RATE_BURST)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log debug output (env: PETITBAC_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceUsage = true

	return cmd
}
