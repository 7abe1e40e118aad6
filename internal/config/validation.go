package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	names := make(map[string]bool)
	for i, v := range cfg.Vaults {
		if names[v.Name] {
			return fmt.Errorf("vaults[%d]: duplicate vault name %q", i, v.Name)
		}
		names[v.Name] = true

		if (v.S3AccessKeyID == "") != (v.S3SecretAccessKey == "") {
			return fmt.Errorf("vaults[%d]: s3_access_key_id and s3_secret_access_key must be set together", i)
		}
	}

	if cfg.Staging.MaxSize < 0 {
		return fmt.Errorf("staging: max_size must not be negative")
	}
	return nil
}

// formatValidationError reports the first failing field with its namespace.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
