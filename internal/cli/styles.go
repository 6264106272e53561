package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/citesync/internal/config"
	"github.com/roach88/citesync/internal/formatter"
)

// StyleInfo is one compiled style as listed by the styles command.
type StyleInfo struct {
	Name             string `json:"name"`
	Mode             string `json:"mode"`
	Delimiter        string `json:"delimiter"`
	HangingIndent    bool   `json:"hanging_indent,omitempty"`
	SecondFieldAlign bool   `json:"second_field_align,omitempty"`
	EntrySpacing     int    `json:"entry_spacing,omitempty"`
}

// NewStylesCommand creates the styles command.
func NewStylesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "styles",
		Short: "List the compiled citation styles",
		Long: `List the embedded engine's citation styles: the builtins plus any
CUE descriptors compiled from the configured styles directory.
Descriptor compile errors are reported with file positions.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStyles(rootOpts, cmd)
		},
	}
	return cmd
}

func runStyles(opts *RootOptions, cmd *cobra.Command) error {
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

	styles, err := formatter.LoadStyles(cfg.Engine.StylesDir)
	if err != nil {
		if outErr := out.Error("style compilation failed", err.Error()); outErr != nil {
			return outErr
		}
		return NewExitError(ExitFailure, "style compilation failed")
	}

	infos := make([]StyleInfo, 0, len(styles))
	for _, style := range styles {
		infos = append(infos, StyleInfo{
			Name:             style.Name,
			Mode:             string(style.Mode),
			Delimiter:        style.Delimiter,
			HangingIndent:    style.HangingIndent,
			SecondFieldAlign: style.SecondFieldAlign,
			EntrySpacing:     style.EntrySpacing,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	if opts.Format == "json" {
		return out.Success(infos)
	}

	var sb strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&sb, "%s (%s, delimiter %q", info.Name, info.Mode, info.Delimiter)
		if info.HangingIndent {
			sb.WriteString(", hanging indent")
		}
		if info.SecondFieldAlign {
			sb.WriteString(", second-field alignment")
		}
		sb.WriteString(")\n")
	}
	return out.Success(strings.TrimRight(sb.String(), "\n"))
}
