package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/citesync/internal/cite"
)

// Style is a compiled citation style descriptor.
type Style struct {
	Name      string
	Mode      cite.Mode
	Delimiter string // between items within one citation

	// Bibliography layout policy; at most one of the two flags is set.
	HangingIndent    bool
	SecondFieldAlign bool
	EntrySpacing     int
}

// builtinStyles are always available, with or without a styles
// directory. chicago-note is the fallback default style.
const builtinStyles = `
styles: {
	"chicago-note": {
		mode:      "note"
		delimiter: "; "
		bibliography: hanging_indent: true
	}
	"numeric-inline": {
		mode:      "in-text"
		delimiter: ", "
		bibliography: {
			second_field_align: true
			entry_spacing:      1
		}
	}
}
`

// CompileStyle parses a CUE value into a Style.
//
// The CUE value should be the style struct itself, e.g.:
//
//	styles: "chicago-note": { mode: "note", ... }
func CompileStyle(name string, v cue.Value) (*Style, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	style := &Style{Name: name, Delimiter: "; "}

	modeVal := v.LookupPath(cue.ParsePath("mode"))
	if !modeVal.Exists() {
		return nil, &StyleError{Field: "mode", Message: "mode is required", Pos: v.Pos()}
	}
	mode, err := modeVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	style.Mode = cite.Mode(mode)
	if !style.Mode.Valid() {
		return nil, &StyleError{
			Field:   "mode",
			Message: fmt.Sprintf("unknown mode %q (want note or in-text)", mode),
			Pos:     modeVal.Pos(),
		}
	}

	if delimVal := v.LookupPath(cue.ParsePath("delimiter")); delimVal.Exists() {
		delim, err := delimVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		style.Delimiter = delim
	}

	if bibVal := v.LookupPath(cue.ParsePath("bibliography")); bibVal.Exists() {
		if err := compileBibliography(style, bibVal); err != nil {
			return nil, err
		}
	}

	return style, nil
}

func compileBibliography(style *Style, v cue.Value) error {
	if hang := v.LookupPath(cue.ParsePath("hanging_indent")); hang.Exists() {
		b, err := hang.Bool()
		if err != nil {
			return formatCUEError(err)
		}
		style.HangingIndent = b
	}
	if sfa := v.LookupPath(cue.ParsePath("second_field_align")); sfa.Exists() {
		b, err := sfa.Bool()
		if err != nil {
			return formatCUEError(err)
		}
		style.SecondFieldAlign = b
	}
	if style.HangingIndent && style.SecondFieldAlign {
		return &StyleError{
			Field:   "bibliography",
			Message: "hanging_indent and second_field_align are mutually exclusive",
			Pos:     v.Pos(),
		}
	}
	if spacing := v.LookupPath(cue.ParsePath("entry_spacing")); spacing.Exists() {
		n, err := spacing.Int64()
		if err != nil {
			return formatCUEError(err)
		}
		style.EntrySpacing = int(n)
	}
	return nil
}

// compileStyleSet compiles every entry under the top-level styles struct.
func compileStyleSet(v cue.Value) (map[string]Style, error) {
	stylesVal := v.LookupPath(cue.ParsePath("styles"))
	if !stylesVal.Exists() {
		return nil, &StyleError{Field: "styles", Message: "styles struct is required", Pos: v.Pos()}
	}

	iter, err := stylesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	styles := make(map[string]Style)
	for iter.Next() {
		name := iter.Selector().Unquoted()
		style, err := CompileStyle(name, iter.Value())
		if err != nil {
			return nil, fmt.Errorf("style %q: %w", name, err)
		}
		styles[name] = *style
	}
	return styles, nil
}

// LoadStyles compiles the builtin styles plus every .cue file in dir
// (ignored when dir is empty). Later files may override builtin names.
func LoadStyles(dir string) (map[string]Style, error) {
	ctx := cuecontext.New()

	styles, err := compileStyleSet(ctx.CompileString(builtinStyles, cue.Filename("builtin.cue")))
	if err != nil {
		return nil, fmt.Errorf("builtin styles: %w", err)
	}

	if dir == "" {
		return styles, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read styles dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cue") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		loaded, err := compileStyleSet(ctx.CompileBytes(src, cue.Filename(path)))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for name, style := range loaded {
			styles[name] = style
		}
	}

	return styles, nil
}

// StyleError represents a style compilation error with source position.
type StyleError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *StyleError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &StyleError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
