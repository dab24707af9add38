package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/mediagc/pkg/reference"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Reference descriptors are interpolated into SQL, so identifiers are
	// checked with the same rule the scanner applies.
	_ = validate.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return reference.ValidIdentifier(fl.Field().String())
	})
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that cannot
// be expressed in tags: lease ttl ordering, unique owner kinds, and the
// per-source descriptor checks the reference scanner relies on.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Leases.DefaultTTL > cfg.Leases.MaxTTL {
		return fmt.Errorf("leases: default_ttl (%s) exceeds max_ttl (%s)",
			cfg.Leases.DefaultTTL, cfg.Leases.MaxTTL)
	}

	// Owner kinds label references in reports, so they must be unique.
	kinds := make(map[string]bool)
	for i := range cfg.References {
		src := &cfg.References[i]
		if kinds[src.OwnerKind] {
			return fmt.Errorf("references[%d]: duplicate owner kind %q", i, src.OwnerKind)
		}
		kinds[src.OwnerKind] = true

		if err := src.Validate(); err != nil {
			return fmt.Errorf("references[%d]: %w", i, err)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
