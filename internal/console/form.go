package console

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kursadbilgin/dispatch-console/internal/domain"
)

// SendAtInputLayout is the datetime-local wire format of the send_at form field.
const SendAtInputLayout = "2006-01-02T15:04"

// minLeadTime is how far ahead of now a notification must be scheduled.
const minLeadTime = time.Minute

// CreateForm holds the raw values of the create form. It is kept as the draft after a failed submit.
type CreateForm struct {
	UserID  string `form:"user_id" validate:"required,max=255"`
	Channel string `form:"channel" validate:"required,oneof=email telegram"`
	Message string `form:"message" validate:"required"`
	SendAt  string `form:"send_at" validate:"required"`
}

func (f CreateForm) IsZero() bool {
	return f == CreateForm{}
}

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MinSendAt returns the earliest selectable send time: now plus one minute, rounded up to
// the next whole minute, in loc.
func MinSendAt(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	earliest := now.Add(minLeadTime).In(loc)
	truncated := earliest.Truncate(time.Minute)
	if truncated.Before(earliest) {
		truncated = truncated.Add(time.Minute)
	}
	return truncated
}

// ParseSendAt reads a datetime-local value in loc. Values carrying an explicit offset are accepted too.
func ParseSendAt(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: send_at is required", domain.ErrValidation)
	}

	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}
	for _, layout := range []string{SendAtInputLayout, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: send_at %q is not a valid date and time", domain.ErrValidation, raw)
}

// buildCreateRequest validates f and converts the local send time to a UTC instant.
func buildCreateRequest(v *validator.Validate, f CreateForm, now time.Time, loc *time.Location) (domain.CreateNotification, error) {
	trimmed := CreateForm{
		UserID:  strings.TrimSpace(f.UserID),
		Channel: strings.ToLower(strings.TrimSpace(f.Channel)),
		Message: strings.TrimSpace(f.Message),
		SendAt:  strings.TrimSpace(f.SendAt),
	}

	if err := v.Struct(trimmed); err != nil {
		return domain.CreateNotification{}, fmt.Errorf("%w: %s", domain.ErrValidation, validationMessage(err))
	}

	sendAt, err := ParseSendAt(trimmed.SendAt, loc)
	if err != nil {
		return domain.CreateNotification{}, err
	}
	if sendAt.Before(now.Add(minLeadTime)) {
		return domain.CreateNotification{}, fmt.Errorf(
			"%w: send time must be at least one minute from now (earliest %s)",
			domain.ErrValidation,
			MinSendAt(now, loc).Format(SendAtInputLayout),
		)
	}

	return domain.CreateNotification{
		UserID:  trimmed.UserID,
		Channel: domain.Channel(trimmed.Channel),
		Message: trimmed.Message,
		SendAt:  sendAt.UTC().Format(time.RFC3339),
	}, nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(parts, "; ")
}
