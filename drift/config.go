package drift

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/chrysalis/env"
)

// ErrInvalidPolicy indicates an unrecognized promotion policy name.
var ErrInvalidPolicy = errors.New("invalid promotion policy")

// Policy names accepted by [Config.NewPolicy].
const (
	PolicyDrift    = "drift"
	PolicyCoverage = "coverage"
)

// Flags holds CLI flag names for promotion configuration, allowing callers
// to customize flag names while keeping sensible defaults.
type Flags struct {
	Policy              string
	AddedMajorPct       string
	RemovedMajorPrevPct string
	TypeShiftMajorPct   string
	PromotePct          string
}

// Config holds CLI flag values for promotion configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewPolicy] to build the single
// [Policy] for this deployment. Flag defaults come from the
// ADDED_MAJOR_PCT, REMOVED_MAJOR_PREV_PCT, TYPE_SHIFT_MAJOR_PCT, and
// PROMOTE_PCT environment variables.
type Config struct {
	Flags               Flags
	Policy              string
	AddedMajorPct       float64
	RemovedMajorPrevPct float64
	TypeShiftMajorPct   float64
	PromotePct          float64
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	f := Flags{
		Policy:              "promotion-policy",
		AddedMajorPct:       "added-major-pct",
		RemovedMajorPrevPct: "removed-major-prev-pct",
		TypeShiftMajorPct:   "type-shift-major-pct",
		PromotePct:          "promote-pct",
	}

	return &Config{Flags: f}
}

// RegisterFlags adds promotion flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	defaults := DefaultThresholds()

	flags.StringVar(&c.Policy, c.Flags.Policy, PolicyDrift,
		fmt.Sprintf("promotion policy, one of: %s, %s", PolicyDrift, PolicyCoverage))
	flags.Float64Var(&c.AddedMajorPct, c.Flags.AddedMajorPct,
		env.Float("ADDED_MAJOR_PCT", defaults.AddedMajorPct),
		"added-field drift threshold")
	flags.Float64Var(&c.RemovedMajorPrevPct, c.Flags.RemovedMajorPrevPct,
		env.Float("REMOVED_MAJOR_PREV_PCT", defaults.RemovedMajorPrevPct),
		"removed-field historical-presence threshold")
	flags.Float64Var(&c.TypeShiftMajorPct, c.Flags.TypeShiftMajorPct,
		env.Float("TYPE_SHIFT_MAJOR_PCT", defaults.TypeShiftMajorPct),
		"dominant-new-type threshold")
	flags.Float64Var(&c.PromotePct, c.Flags.PromotePct,
		env.Float("PROMOTE_PCT", 0.90),
		"coverage-policy promotion threshold")
}

// RegisterCompletions registers shell completions for promotion flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.Policy,
		cobra.FixedCompletions([]string{PolicyDrift, PolicyCoverage},
			cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Policy, err)
	}

	return nil
}

// NewPolicy creates the configured [Policy].
func (c *Config) NewPolicy() (Policy, error) {
	switch c.Policy {
	case PolicyDrift:
		return NewRulePolicy(Thresholds{
			AddedMajorPct:       c.AddedMajorPct,
			RemovedMajorPrevPct: c.RemovedMajorPrevPct,
			TypeShiftMajorPct:   c.TypeShiftMajorPct,
		}), nil
	case PolicyCoverage:
		return NewCoveragePolicy(c.PromotePct), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, c.Policy)
}
