// Package cli implements the overlaybx command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/overlaybx/pkg/buildinfo"
	"github.com/matzehuels/overlaybx/pkg/config"
	"github.com/matzehuels/overlaybx/pkg/geometry"
	"github.com/matzehuels/overlaybx/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "overlaybx"

	// defaultSteering is the steering file looked up when -c is not given.
	defaultSteering = "overlaybx.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level, overlay and
// stream events are also traced through the observability hooks.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		hooks := &logHooks{logger: c.Logger}
		observability.SetOverlayHooks(hooks)
		observability.SetSourceHooks(hooks)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Overlay beam-induced background onto simulated events",
		Long:         `overlaybx overlays background bunch crossings onto primary detector events, using per-layer readout windows for the vertex detector.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.runCommand())
	root.AddCommand(c.windowsCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.particlesCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Steering
// =============================================================================

// steeringFlags are the flags shared by commands that need a steering file
// and a geometry.
type steeringFlags struct {
	config   string
	geometry string
}

func (f *steeringFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "steering file (default "+defaultSteering+" if present)")
	cmd.Flags().StringVarP(&f.geometry, "geometry", "g", "", "geometry YAML (overrides geometry_file)")
}

// load reads the steering file and the geometry it refers to. Without -c,
// the default steering file is used when it exists and the built-in
// defaults otherwise.
func (f *steeringFlags) load(logger *log.Logger) (config.Config, geometry.Provider, error) {
	cfg := config.Default()
	path := f.config
	if path == "" && fileExists(defaultSteering) {
		path = defaultSteering
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, nil, err
		}
		logger.Debug("loaded steering", "path", path)
	}
	if f.geometry != "" {
		cfg.GeometryFile = f.geometry
	}

	if cfg.GeometryFile == "" {
		logger.Debug("using built-in geometry")
		return cfg, geometry.DefaultLayout(), nil
	}
	layout, err := geometry.LoadLayout(cfg.GeometryFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger.Debug("loaded geometry", "path", cfg.GeometryFile, "detector", layout.Detector, "layers", len(layout.LayerLayout))
	return cfg, layout, nil
}
