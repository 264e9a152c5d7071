package api

import (
	"github.com/spf13/pflag"

	"go.jacobcolvin.com/chrysalis/env"
)

// Flags holds CLI flag names for API configuration, allowing callers to
// customize flag names while keeping sensible defaults.
type Flags struct {
	Addr         string
	PromoteToken string
}

// Config holds CLI flag values for API configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Flag defaults come from the API_ADDR and
// PROMOTE_TOKEN environment variables.
type Config struct {
	Flags        Flags
	Addr         string
	PromoteToken string
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	f := Flags{
		Addr:         "api-addr",
		PromoteToken: "promote-token",
	}

	return &Config{Flags: f}
}

// RegisterFlags adds API flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Addr, c.Flags.Addr,
		env.String("API_ADDR", ":8080"),
		"listen address for the operational API")
	flags.StringVar(&c.PromoteToken, c.Flags.PromoteToken,
		env.String("PROMOTE_TOKEN", "demo-token"),
		"shared secret for the manual approval endpoint")
}
