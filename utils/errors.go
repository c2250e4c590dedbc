package utils

import (
	"github.com/pkg/errors"
)

// NewConfigValidationFieldRequiredError is used when a required config field is missing.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return errors.Errorf("error validating %q: %q is required", path, field)
}

// NewConfigValidationError is used when a config field has an unusable value.
func NewConfigValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}
