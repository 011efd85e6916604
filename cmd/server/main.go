package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/domain/commands"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/config"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/server"
)

const version = "0.1.0"

// CLI defines the command-line interface.
var CLI struct {
	EnvFile string `name:"env-file" default:".env" help:"Load variables from this file before reading the environment" type:"path"`

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Run the proxy and panel host (default)"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// ServeCmd runs the bridge until interrupted. Flags override environment
// variables.
type ServeCmd struct {
	Upstream   string `help:"Site to embed and proxy"`
	LogLevel   string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	Dev        bool   `help:"Development logging and gin debug mode"`
	ExtractDir string `name:"extract-dir" type:"path" help:"Extract projects here instead of asking"`
	NoOpen     bool   `name:"no-open" help:"Do not open a browser tab for the panel"`
	NoStart    bool   `name:"no-start" help:"Do not open the panel on startup"`
}

// Run implements the serve command.
func (c *ServeCmd) Run() error {
	if err := config.LoadDotEnv(CLI.EnvFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Proxy:   http://localhost:%d/\n", srv.ProxyPort())
	fmt.Fprintf(os.Stderr, "Control: %s (POST /commands/%s to open the panel)\n", srv.ControlURL(), commands.Start)

	return srv.Run(ctx)
}

func (c *ServeCmd) apply(cfg *config.Config) {
	if c.Upstream != "" {
		cfg.Proxy.Upstream = c.Upstream
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	if c.Dev {
		cfg.Logging.Development = true
	}
	if c.ExtractDir != "" {
		cfg.Host.ExtractDir = c.ExtractDir
	}
	if c.NoOpen {
		cfg.Host.OpenBrowser = false
	}
	if c.NoStart {
		cfg.Panel.AutoStart = false
	}
}

// VersionCmd prints the version.
type VersionCmd struct{}

// Run implements the version command.
func (c *VersionCmd) Run() error {
	fmt.Printf("webview-iframe %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("webview-iframe"),
		kong.Description("Embed a website in an editor panel and import the projects it generates"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run()
	if err != nil {
		logger := logging.NewDefault()
		logger.Error("Exiting", zap.Error(err))
		_ = logger.Sync()
	}
	ctx.FatalIfErrorf(err)
}
