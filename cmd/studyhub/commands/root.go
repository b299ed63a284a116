package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"studyhub-backend/lib/config"
	"studyhub-backend/lib/platforms/canvas"
	"studyhub-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

const serviceName = "studyhub"

type globals struct {
	getenv         func(string) string
	setupTelemetry func(ctx context.Context, getenv func(string) string) telemetry.Telemetry

	configPath string
	verbose    bool
	baseUrl    string
	state      string

	cfg config.Config
	tel telemetry.Telemetry
}

// resolve loads the configuration and lets explicitly passed flags win
// over it.
func (g *globals) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(g.configPath, g.getenv)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseUrl = g.baseUrl
	}
	if cmd.Flags().Changed("state") {
		cfg.EnrollmentState = g.state
	}
	g.cfg = cfg
	return nil
}

func (g *globals) canvasClient() (*canvas.Client, error) {
	err := g.cfg.Validate()
	if err != nil {
		return nil, err
	}
	return canvas.NewClient(canvas.ClientOptions{
		CoursesUrl:  g.cfg.BaseUrl,
		AccessToken: g.cfg.AccessToken,
		Timeout:     g.cfg.Timeout(),
	})
}

func setupTelemetry(ctx context.Context, getenv func(string) string) telemetry.Telemetry {
	tel, err := telemetry.SetupFromEnv(ctx, serviceName, getenv)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no telemetry configured, telemetry export disabled")
		return telemetry.Telemetry{}
	}
	if err != nil {
		slog.Warn("failed to setup telemetry", "err", err)
	}
	return tel
}

// NewRootCmd builds the command tree, getenv is consulted for
// configuration overrides. The caller owns the telemetry it sets up, use
// Execute to have it flushed.
func NewRootCmd(getenv func(string) string) *cobra.Command {
	return newRootCmd(&globals{getenv: getenv, setupTelemetry: setupTelemetry})
}

func newRootCmd(g *globals) *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "studyhub queries canvas for the courses of a student.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			telemetry.InitSlog(g.verbose)
			g.tel = g.setupTelemetry(cmd.Context(), g.getenv)
			return g.resolve(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "canvas.json5", "The configuration file, a sibling <name>.local.json5 overrides it.")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Enables debug logging.")
	flags.StringVar(&g.baseUrl, "base-url", config.DefaultBaseUrl, "The canvas course listing endpoint.")
	flags.StringVar(&g.state, "state", config.DefaultEnrollmentState, "The enrollment state to filter courses by (active, completed, invited...).")

	root.AddCommand(
		newCoursesCmd(g),
		newCurrentCmd(g),
		newSyncCmd(g),
		newEventsCmd(g),
	)
	return root
}

// Execute runs the command line and returns the error of the command that ran.
// Telemetry is flushed whether or not the command succeeded.
func Execute(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	return execute(ctx, &globals{getenv: getenv, setupTelemetry: setupTelemetry}, args, stdout, stderr)
}

func execute(ctx context.Context, g *globals, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(g)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	defer func() {
		err := g.tel.Shutdown(context.WithoutCancel(ctx))
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()
	return root.ExecuteContext(ctx)
}
