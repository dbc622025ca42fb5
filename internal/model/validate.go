package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidRange    = errors.New("end date precedes start date")
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
	ErrInvalidStatus   = errors.New("unknown status")
	ErrInvalid         = errors.New("invalid value")
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
			_, err := ParseDate(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
			return Status(fl.Field().String()).Valid()
		})
		validate = v
	})
	return validate
}

// Validate checks the struct tags and that start is not after end.
func (t Task) Validate() error {
	if err := validateStruct(t); err != nil {
		return err
	}
	if t.Start != "" && t.End != "" {
		if err := CheckRange(t.Start, t.End); err != nil {
			return err
		}
	}
	return nil
}

func (a Affaire) Validate() error  { return validateStruct(a) }
func (l Lot) Validate() error      { return validateStruct(l) }
func (r Resource) Validate() error { return validateStruct(r) }

func ValidateProgress(p int) error {
	if p < 0 || p > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidProgress, p)
	}
	return nil
}

func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	sentinel := ErrInvalid
	for _, fe := range verrs {
		switch fe.Tag() {
		case "ymd":
			sentinel = ErrInvalidDate
		case "status":
			sentinel = ErrInvalidStatus
		case "min", "max":
			if fe.Field() == "Progress" {
				sentinel = ErrInvalidProgress
			}
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w (%s)", sentinel, strings.Join(parts, ", "))
}
