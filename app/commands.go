package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/folio/app/server"
	"github.com/umputun/folio/app/site"
	"github.com/umputun/folio/app/store"
)

// SiteOptions contains options shared between all commands
type SiteOptions struct {
	Site struct {
		Root   string `long:"root" env:"ROOT" default:"." description:"site source directory"`
		Config string `long:"config" env:"CONFIG" description:"site config file (yaml), defaults are used if not set"`
	} `group:"site" namespace:"site" env-namespace:"FOLIO_SITE"`

	Debug bool `long:"dbg" env:"DEBUG" description:"debug mode"`
}

// newBuilder loads the site config and makes a builder for the site root.
func (o SiteOptions) newBuilder() (*site.Builder, error) {
	cfg, err := site.LoadConfig(o.Site.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load site config: %w", err)
	}
	b, err := site.NewBuilder(o.Site.Root, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize site: %w", err)
	}
	return b, nil
}

// ServerCmd implements the server subcommand
type ServerCmd struct {
	SiteOptions

	DB string `short:"d" long:"db" env:"FOLIO_DB" default:"folio.db" description:"preferences database URL (sqlite file or postgres://...)"`

	Server struct {
		Address       string        `long:"address" env:"ADDRESS" default:":8080" description:"server listen address"`
		ReadTimeout   time.Duration `long:"read-timeout" env:"READ_TIMEOUT" default:"5s" description:"read timeout"`
		WriteTimeout  time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" default:"30s" description:"write timeout"`
		IdleTimeout   time.Duration `long:"idle-timeout" env:"IDLE_TIMEOUT" default:"60s" description:"idle timeout"`
		SecureCookies bool          `long:"secure-cookies" env:"SECURE_COOKIES" description:"mark visitor cookies secure (https only)"`
	} `group:"server" namespace:"server" env-namespace:"FOLIO_SERVER"`

	ctx    context.Context
	cancel context.CancelFunc
}

// Execute runs the server command
func (s *ServerCmd) Execute(_ []string) error {
	setupLogs(s.Debug)

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
		signals(s.cancel)
	}

	return s.run(s.ctx)
}

func (s *ServerCmd) run(ctx context.Context) error {
	log.Printf("[INFO] starting folio server on %s, site %s", s.Server.Address, s.Site.Root)

	b, err := s.newBuilder()
	if err != nil {
		return err
	}

	// initialize storage
	kvStore, err := store.New(s.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer kvStore.Close()

	// initialize and start HTTP server
	srv, err := server.New(kvStore, b, server.Config{
		Address:       s.Server.Address,
		ReadTimeout:   s.Server.ReadTimeout,
		WriteTimeout:  s.Server.WriteTimeout,
		IdleTimeout:   s.Server.IdleTimeout,
		Version:       revision,
		SecureCookies: s.Server.SecureCookies,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	// pick up site config edits without restart
	if s.Site.Config != "" {
		root := s.Site.Root
		if err := site.WatchConfig(ctx, s.Site.Config, func(cfg site.Config) {
			nb, nbErr := site.NewBuilder(root, cfg)
			if nbErr != nil {
				log.Printf("[WARN] failed to apply site config: %v", nbErr)
				return
			}
			srv.SetSite(nb)
		}); err != nil {
			log.Printf("[WARN] config hot-reload disabled: %v", err)
		}
	}

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// BuildCmd implements the build subcommand
type BuildCmd struct {
	SiteOptions

	Output string `short:"o" long:"output" env:"FOLIO_OUTPUT" description:"output directory, overrides the site config"`
}

// Execute runs the build command
func (c *BuildCmd) Execute(_ []string) error {
	setupLogs(c.Debug)
	return c.run(context.Background())
}

func (c *BuildCmd) run(ctx context.Context) error {
	cfg, err := site.LoadConfig(c.Site.Config)
	if err != nil {
		return fmt.Errorf("failed to load site config: %w", err)
	}
	if c.Output != "" {
		cfg.Output = c.Output
	}
	b, err := site.NewBuilder(c.Site.Root, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize site: %w", err)
	}

	log.Printf("[INFO] building site %s into %s", c.Site.Root, cfg.Output)
	stats, err := b.Build(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	log.Printf("[INFO] built %d pages, %d figures, %d drafts skipped", stats.Pages, stats.Figures, stats.Skipped)
	fmt.Printf("built %d pages into %s\n", stats.Pages, cfg.Output)
	return nil
}
