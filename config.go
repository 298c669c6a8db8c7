package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind       string
	db         string
	gridHeight int
	gridWidth  int
	jwtSecret  string
	port       int
	prefix     string
	profile    bool
	tlsCert    string
	tlsKey     string
	tokenTTL   time.Duration
	verbose    bool
	version    bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.gridWidth < 1 || c.gridHeight < 1 {
		return fmt.Errorf("invalid grid dimensions: %dx%d", c.gridWidth, c.gridHeight)
	}
	if c.jwtSecret == "" {
		return errors.New("--jwt-secret must be set (env: PIXELBOARD_JWT_SECRET)")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PIXELBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "pixelboard",
		Short:         "A collaborative pixel-art canvas, where every cell belongs to whoever colors it first.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PIXELBOARD_BIND)")
	fs.StringVar(&cfg.db, "db", "pixelboard.db", "path to the sqlite user database (env: PIXELBOARD_DB)")
	fs.IntVar(&cfg.gridHeight, "grid-height", 64, "board height in cells (env: PIXELBOARD_GRID_HEIGHT)")
	fs.IntVar(&cfg.gridWidth, "grid-width", 64, "board width in cells (env: PIXELBOARD_GRID_WIDTH)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "", "secret used to sign login tokens (env: PIXELBOARD_JWT_SECRET)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PIXELBOARD_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PIXELBOARD_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PIXELBOARD_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PIXELBOARD_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PIXELBOARD_TLS_KEY)")
	fs.DurationVar(&cfg.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of issued login tokens (env: PIXELBOARD_TOKEN_TTL)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PIXELBOARD_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PIXELBOARD_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("pixelboard v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
