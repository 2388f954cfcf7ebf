package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Steps  int               `json:"steps"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Check a scenario file without replaying it",
		Long: `Parse a scenario file and check its genesis and steps.

Reports unknown operations, missing fields, malformed amounts and unknown
expected outcomes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load scenario", err)
	}
	scenario.ApplyEnvOverrides()

	formatter.VerboseLog("Loaded scenario %q with %d step(s)", scenario.Name, len(scenario.Steps))

	errs := scenario.Validate()
	result := ValidationResult{Valid: len(errs) == 0, Steps: len(scenario.Steps), Errors: errs}

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		_ = formatter.Error(ErrCodeInvalid, errs[0].String(), result)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	if result.Valid {
		fmt.Fprintf(formatter.Writer, "scenario %s is valid (%d steps)\n", scenario.Name, result.Steps)
		return nil
	}

	fmt.Fprintln(formatter.Writer, "scenario is invalid")
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", e)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
