package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/citesync/internal/cite"
	"github.com/roach88/citesync/internal/config"
	"github.com/roach88/citesync/internal/persist"
	"github.com/roach88/citesync/internal/session"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Repair bool
}

// ValidationResult reports the persisted-state check.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
	Repaired bool     `json:"repaired,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check persisted citation state for consistency",
		Long: `Check the configured store's citation state.

Every stored record must carry an identifier known to the stored
position map, identifiers must be unique, and positions must be in
range. With --repair an inconsistent state is reset to empty, the
same recovery a session applies on startup.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateState(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Repair, "repair", false, "reset inconsistent state to empty")

	return cmd
}

func runValidateState(opts *ValidateOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
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

	records := adapter.CitationByIndex()
	positions := adapter.Positions()
	out.VerboseLog("checking %d record(s) against %d position(s)", len(records), len(positions))

	problems := session.CheckState(records, positions)
	if len(problems) == 0 {
		if opts.Format == "json" {
			return out.Success(ValidationResult{Valid: true})
		}
		return out.Success("state is consistent")
	}

	if !opts.Repair {
		if err := out.Error(fmt.Sprintf("%d problem(s) found", len(problems)), problems); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "state is inconsistent")
	}

	if err := adapter.SetCitationByIndex([]cite.Record{}); err != nil {
		return WrapExitError(ExitCommandError, "repair records", err)
	}
	if err := adapter.SetPositions(map[string]int{}); err != nil {
		return WrapExitError(ExitCommandError, "repair positions", err)
	}

	if opts.Format == "json" {
		return out.Success(ValidationResult{Valid: true, Problems: problems, Repaired: true})
	}
	return out.Success(fmt.Sprintf("state reset to empty (%d problem(s) cleared)", len(problems)))
}
