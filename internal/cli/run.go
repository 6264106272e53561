package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/citesync/internal/config"
	"github.com/roach88/citesync/internal/formatter"
	"github.com/roach88/citesync/internal/harness"
	"github.com/roach88/citesync/internal/persist"
	"github.com/roach88/citesync/internal/protocol"
	"github.com/roach88/citesync/internal/remote"
	"github.com/roach88/citesync/internal/session"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Fresh bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Apply a citation edit script against the configured store",
		Long: `Apply a citation edit script to a document session.

The session restores persisted state from the configured store, connects
to the configured formatting engine (remote URL or embedded), applies the
scenario's steps, and prints the final document render. Scenario
assertions, if present, are evaluated; failures set exit code 1.

Example:
  citesync run --config citesync.yaml script.yaml
  citesync run --fresh script.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Fresh, "fresh", false, "ignore persisted state and start from an empty document")

	return cmd
}

func runScript(opts *RunOptions, scenarioPath string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}

	store, err := cfg.OpenStore()
	if err != nil {
		return WrapExitError(ExitCommandError, "open store", err)
	}
	adapter := persist.NewAdapter(store)
	defer adapter.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	transport, closeTransport, err := openTransport(ctx, cfg, scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "open engine transport", err)
	}
	defer closeTransport()

	sessOpts := sessionOptions(cfg, scenario)
	sess := session.New(adapter, transport, sessOpts...)
	if !opts.Fresh {
		sess.Restore()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sess.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if !sess.Initialize(ctx) {
		return NewExitError(ExitFailure, "engine busy before first request")
	}
	if err := harness.WaitSettled(sess); err != nil {
		return WrapExitError(ExitFailure, "initialize", err)
	}

	for i, step := range scenario.Steps {
		out.VerboseLog("step %d: %s at %d %v", i+1, step.Op, step.Position, step.Items)
		if err := harness.ApplyStep(sess, step); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("step %d", i+1), err)
		}
	}

	if failures := harness.EvaluateAssertions(scenario.Assertions, sess, nil); len(failures) > 0 {
		_ = out.Error(fmt.Sprintf("%d assertion(s) failed", len(failures)), failures)
		return NewExitError(ExitFailure, "scenario assertions failed")
	}

	return out.Success(strings.TrimRight(sess.Document().Render(), "\n"))
}

// openTransport builds the configured engine transport: a websocket
// client when a URL is configured, the embedded formatter otherwise.
func openTransport(ctx context.Context, cfg config.Config, scenario *harness.Scenario) (protocol.Transport, func(), error) {
	if cfg.Engine.URL != "" {
		client, err := remote.Dial(ctx, cfg.Engine.URL)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	}

	eng, err := formatter.NewEngine(
		formatter.WithLibrary(scenario.Library),
		formatter.WithStylesDir(cfg.Engine.StylesDir),
	)
	if err != nil {
		return nil, nil, err
	}
	return eng, func() {}, nil
}

// sessionOptions derives the style and locale: scenario values win over
// config values; both fall back to the adapter defaults.
func sessionOptions(cfg config.Config, scenario *harness.Scenario) []session.Option {
	style := cfg.Style
	if scenario.Style != "" {
		style = scenario.Style
	}
	locale := cfg.Locale
	if scenario.Locale != "" {
		locale = scenario.Locale
	}

	var opts []session.Option
	if style != "" || locale != "" {
		opts = append(opts, session.WithStyle(style, locale))
	}
	return opts
}
