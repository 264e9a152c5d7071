package validate

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/chrysalis/env"
)

// ErrInvalidMode indicates an unrecognized validation mode name.
var ErrInvalidMode = errors.New("invalid validation mode")

// Flags holds CLI flag names for validation configuration, allowing callers
// to customize flag names while keeping sensible defaults.
type Flags struct {
	Mode               string
	RequiredPct        string
	AllowTypePromotion string
}

// Config holds CLI flag values for validation configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewValidator] to build the
// deployment's [Validator]. Flag defaults come from the REQUIRED_PCT and
// ALLOW_TYPE_PROMOTION environment variables.
type Config struct {
	Flags              Flags
	Mode               string
	RequiredPct        float64
	AllowTypePromotion bool
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	f := Flags{
		Mode:               "validation-mode",
		RequiredPct:        "required-pct",
		AllowTypePromotion: "allow-type-promotion",
	}

	return &Config{Flags: f}
}

// RegisterFlags adds validation flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Mode, c.Flags.Mode, string(ModeStrict),
		fmt.Sprintf("validation mode, one of: %s, %s", ModeStrict, ModeLenient))
	flags.Float64Var(&c.RequiredPct, c.Flags.RequiredPct,
		env.Float("REQUIRED_PCT", 0.90),
		"historical-presence threshold above which a field is required")
	flags.BoolVar(&c.AllowTypePromotion, c.Flags.AllowTypePromotion,
		env.Bool("ALLOW_TYPE_PROMOTION", true),
		"allow lenient type coercion during validation")
}

// RegisterCompletions registers shell completions for validation flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.Mode,
		cobra.FixedCompletions([]string{string(ModeStrict), string(ModeLenient)},
			cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Mode, err)
	}

	return nil
}

// NewValidator creates the configured [Validator].
func (c *Config) NewValidator() (*Validator, error) {
	mode := Mode(c.Mode)

	switch mode {
	case ModeStrict, ModeLenient:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}

	return New(mode,
		WithRequiredPct(c.RequiredPct),
		WithTypePromotions(c.AllowTypePromotion),
	), nil
}
