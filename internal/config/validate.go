package config

import (
	"fmt"
	"strings"

	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// ValidateProjectConfig checks structural validity of the root project
// configuration (spec §4.2).
func ValidateProjectConfig(cfg ProjectConfig) error {
	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}
	for name, conn := range cfg.Connections {
		if conn.Name != "" && conn.Name != name {
			return streamyerrors.NewConfigInvalid(
				fmt.Sprintf("connection %q: Name field %q does not match map key", name, conn.Name), nil)
		}
	}
	return nil
}

// ValidateAdapterConfig checks structural validity of one adapter
// configuration, including the cross-field source-descriptor rule that
// struct tags cannot express.
func ValidateAdapterConfig(a AdapterConfig) error {
	if err := validatorInstance().Struct(a); err != nil {
		return convertValidationError(err)
	}
	if err := a.Validate(); err != nil {
		return streamyerrors.NewConfigInvalid(err.Error(), nil)
	}
	if a.Source.File != nil {
		if err := validatorInstance().Struct(a.Source.File); err != nil {
			return convertValidationError(err)
		}
	}
	if a.Source.Database != nil {
		if err := validatorInstance().Struct(a.Source.Database); err != nil {
			return convertValidationError(err)
		}
	}
	return nil
}

// ValidateModelConfig checks structural validity of one model configuration.
func ValidateModelConfig(m ModelConfig) error {
	if err := validatorInstance().Struct(m); err != nil {
		return convertValidationError(err)
	}
	if strings.TrimSpace(m.SQL) == "" {
		return streamyerrors.NewConfigInvalid(fmt.Sprintf("model %q: sql must not be blank", m.Name), nil)
	}
	return nil
}

// ValidateAll validates a project config plus every adapter and model
// config, returning the first error found (names are checked for
// cross-kind collisions separately by the resolver, since that rule spans
// both slices — see spec §4.3 step 1).
func ValidateAll(project ProjectConfig, adapters []AdapterConfig, models []ModelConfig) error {
	if err := ValidateProjectConfig(project); err != nil {
		return err
	}
	for _, a := range adapters {
		if err := ValidateAdapterConfig(a); err != nil {
			return err
		}
		if _, ok := project.Connections[a.Connection]; !ok {
			return streamyerrors.NewConfigInvalid(
				fmt.Sprintf("adapter %q: unknown connection %q", a.Name, a.Connection), nil)
		}
	}
	for _, m := range models {
		if err := ValidateModelConfig(m); err != nil {
			return err
		}
	}
	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if ok := isInvalidValidationError(err, &invalid); ok {
		return streamyerrors.NewConfigInvalid(err.Error(), err)
	}

	var fieldErrs validator.ValidationErrors
	if ok := isValidationErrors(err, &fieldErrs); ok && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return streamyerrors.NewConfigInvalid(
			fmt.Sprintf("field %q failed %q validation", first.Namespace(), first.Tag()), err)
	}
	return streamyerrors.NewConfigInvalid(err.Error(), err)
}

func isInvalidValidationError(err error, target **validator.InvalidValidationError) bool {
	if e, ok := err.(*validator.InvalidValidationError); ok {
		*target = e
		return true
	}
	return false
}

func isValidationErrors(err error, target *validator.ValidationErrors) bool {
	if e, ok := err.(validator.ValidationErrors); ok {
		*target = e
		return true
	}
	return false
}
