package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/scratchbench/internal/harness"
)

// ValidationResult is the outcome for one definition file.
type ValidationResult struct {
	File  string `json:"file"`
	Name  string `json:"name,omitempty"`
	Cases int    `json:"cases,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateOutput is the JSON payload of the validate command.
type ValidateOutput struct {
	Results []ValidationResult `json:"results"`
	Valid   int                `json:"valid"`
	Invalid int                `json:"invalid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition...>",
		Short: "Validate scenario definition files",
		Long: `Validate YAML scenario definitions without running them.

Each file is decoded strictly, checked against the definition schema and
compiled. Directories contribute their *.yaml and *.yml files.

Exit codes:
  0 - Every definition is valid
  1 - One or more definitions are invalid
  2 - Command error (missing path, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	files, err := harness.FindDefinitions(paths...)
	if err != nil {
		var nf *harness.DefinitionNotFoundError
		if errors.As(err, &nf) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, nf.Error(), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeDefinition, "failed to find definitions", err)
	}

	out := ValidateOutput{Results: make([]ValidationResult, 0, len(files))}
	seen := map[string]string{}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		res := validateFile(file)
		if res.Valid {
			if prev, dup := seen[res.Name]; dup {
				res.Valid = false
				res.Error = fmt.Sprintf("scenario name %q already defined in %s", res.Name, prev)
			} else {
				seen[res.Name] = file
			}
		}
		if res.Valid {
			out.Valid++
		} else {
			out.Invalid++
		}
		out.Results = append(out.Results, res)
	}

	if err := formatter.Success(out, func(w io.Writer) {
		for _, res := range out.Results {
			if res.Valid {
				fmt.Fprintf(w, "✓ %s (%s, %d cases)\n", res.File, res.Name, res.Cases)
			} else {
				fmt.Fprintf(w, "✗ %s\n  %s\n", res.File, res.Error)
			}
		}
		if len(out.Results) == 0 {
			fmt.Fprintln(w, "No definitions found.")
		}
	}); err != nil {
		return err
	}

	if out.Invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d definitions invalid", out.Invalid, len(out.Results)))
	}
	return nil
}

func validateFile(file string) ValidationResult {
	res := ValidationResult{File: file}
	def, err := harness.LoadDefinition(file)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	sc, err := def.Compile()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Name = sc.Name
	res.Cases = len(sc.Cases)
	res.Valid = true
	return res
}
