package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gotour/pkg/logger"
	"gotour/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	if err := v.RegisterValidation("booking_date", validateBookingDate); err != nil {
		log.Fatal("Failed to register 'booking_date' validator",
			"error", err,
		)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingDate(fl validator.FieldLevel) bool {
	_, ok := model.ParseDate(fl.Field().String())
	return ok
}

// Validate checks a create request. req.Kind must be set by the caller.
func (v *BookingValidator) Validate(req *model.BookingRequest) error {
	if _, ok := model.ParseBookingKind(string(req.Kind)); !ok {
		return ValidationErrors{{Field: "booking_type", Message: "booking_type must be one of: tour hotel flight"}}
	}

	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	switch req.Kind {
	case model.KindTour:
		if req.EndDate != "" && dateBefore(req.EndDate, req.StartDate) {
			return ValidationErrors{{Field: "end_date", Message: "end_date cannot be before start_date"}}
		}
	case model.KindHotel:
		if !dateBefore(req.CheckInDate, req.CheckOutDate) {
			return ValidationErrors{{Field: "check_out_date", Message: "check_out_date must be after check_in_date"}}
		}
	}

	if req.Guests.Total() < 0 {
		return ValidationErrors{{Field: "guests", Message: "guests cannot be negative"}}
	}

	return nil
}

func dateBefore(a, b string) bool {
	ta, okA := model.ParseDate(a)
	tb, okB := model.ParseDate(b)
	return okA && okB && ta.Before(tb)
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "booking_date":
			message = fmt.Sprintf("%s must be a date (YYYY-MM-DD or RFC 3339)", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldPath(err),
			Message: message,
		})
	}

	return validationErrors
}

// fieldPath drops the struct name prefix, leaving e.g. "passengers[0].first_name".
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return err.Field()
}
