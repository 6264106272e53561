package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/citesync/internal/config"
	"github.com/roach88/citesync/internal/formatter"
	"github.com/roach88/citesync/internal/remote"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr    string
	Library string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the embedded formatting engine over websocket",
		Long: `Host the embedded formatting engine as a websocket endpoint.

Sessions on other machines point their engine URL at this process
(engine.url: ws://host:port/engine in their config). Style descriptors
come from the configured styles directory; the reference library from
the --library YAML file.

Example:
  citesync serve --addr :8375 --library refs.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8375", "listen address")
	cmd.Flags().StringVar(&opts.Library, "library", "", "reference library YAML file")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}

	library, err := loadLibrary(opts.Library)
	if err != nil {
		return WrapExitError(ExitCommandError, "load library", err)
	}

	eng, err := formatter.NewEngine(
		formatter.WithLibrary(library),
		formatter.WithStylesDir(cfg.Engine.StylesDir),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "build engine", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/engine", remote.Handler(eng))

	server := &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Engine listening on %s/engine. Press Ctrl-C to stop.\n", opts.Addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "engine server", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// loadLibrary reads a reference library YAML file, keyed by item ID.
// An empty path yields an empty library; unresolved items render as
// their raw IDs.
func loadLibrary(path string) (map[string]formatter.Reference, error) {
	if path == "" {
		return map[string]formatter.Reference{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var library map[string]formatter.Reference
	if err := yaml.Unmarshal(data, &library); err != nil {
		return nil, fmt.Errorf("parse library %s: %w", path, err)
	}
	return library, nil
}
