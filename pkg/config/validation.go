package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct validation tags and
// the cross-field rules the tags cannot express.
//
// Call after ApplyDefaults so unset fields validate against their defaults
// rather than zero values.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(cfg); err != nil {
		return err
	}

	// The JWT secret is optional at load time so that read-only commands
	// (config show, one-shot sweeps) work without one, but an enabled API
	// cannot start without a usable signing key.
	if cfg.API.IsEnabled() && cfg.API.JWT.Secret != "" && len(cfg.API.JWT.Secret) < 32 {
		return fmt.Errorf("api.jwt.secret must be at least 32 characters")
	}

	return nil
}
