package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/grimoire/internal/enrichers"
	"github.com/roach88/grimoire/internal/plan"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Enrichers []string
}

// PlanResult is the JSON payload of the plan command.
type PlanResult struct {
	Order  []string     `json:"order"`
	Tables []string     `json:"tables"`
	Hash   string       `json:"hash,omitempty"`
	Cycles []plan.Cycle `json:"cycles"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the execution plan for a set of enrichers",
		Long: `Resolve enricher dependencies and print the execution order, the tables
that would be loaded and the plan fingerprint. Nothing is fetched.

Every dependency cycle is reported; a plan with cycles exits with status 1.

Examples:
  grimoire plan
  grimoire plan --enrichers cooldown --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Enrichers, "enrichers", nil, "enrichers to plan (comma-separated; default all)")

	return cmd
}

func runPlan(opts *PlanOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	requested, err := enrichers.Select(opts.Enrichers)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid enricher selection", err)
	}

	result := PlanResult{
		Order:  []string{},
		Tables: []string{},
		Cycles: plan.Cycles(requested),
	}

	p, buildErr := plan.Build(requested)
	if buildErr == nil {
		result.Order = p.Names()
		result.Tables = tableNames(p.Tables)
		if result.Hash, err = p.Hash(); err != nil {
			return WrapExitError(ExitFailure, "failed to hash plan", err)
		}
	}

	if err := formatter.Success(result, formatPlanText(result, buildErr)); err != nil {
		return err
	}
	if buildErr != nil {
		return WrapExitError(ExitFailure, "plan failed", buildErr)
	}
	return nil
}

func formatPlanText(r PlanResult, buildErr error) string {
	var b strings.Builder
	if buildErr != nil {
		fmt.Fprintf(&b, "Plan failed: %v\n", buildErr)
	} else {
		b.WriteString("Order:\n")
		for i, name := range r.Order {
			fmt.Fprintf(&b, "  %2d. %s\n", i+1, name)
		}
		b.WriteString("Tables:\n")
		for _, t := range r.Tables {
			fmt.Fprintf(&b, "  %s\n", t)
		}
		fmt.Fprintf(&b, "Hash: %s\n", r.Hash)
	}
	for _, c := range r.Cycles {
		fmt.Fprintf(&b, "Cycle: %s\n", strings.Join(c.Path, " -> "))
	}
	return b.String()
}
