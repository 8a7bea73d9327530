package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/manasmitra/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	register := map[string]validator.Func{
		"mood":         validateMood,
		"feeling":      validateFeeling,
		"session_type": validateSessionType,
		"experience":   validateExperience,
	}
	for tag, fn := range register {
		if err := Validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
}

func validateMood(fl validator.FieldLevel) bool {
	return models.Mood(fl.Field().String()).Valid()
}

func validateFeeling(fl validator.FieldLevel) bool {
	return models.Feeling(fl.Field().String()).Valid()
}

func validateSessionType(fl validator.FieldLevel) bool {
	return models.SessionType(fl.Field().String()).Valid()
}

// validateExperience accepts the empty string; experience is optional.
func validateExperience(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.Experience(value).Valid()
}

// Struct validates s and flattens validator errors into one readable message.
func Struct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "mood":
		return fmt.Sprintf("invalid mood: %v (must be one of Happy, Okay, Sad, Anxious, Angry)", fe.Value())
	case "feeling":
		return fmt.Sprintf("invalid feeling: %v", fe.Value())
	case "session_type":
		return fmt.Sprintf("invalid sessionType: %v (must be 'breathing', 'meditation', 'body-scan', or 'mindful-moment')", fe.Value())
	case "experience":
		return fmt.Sprintf("invalid experience: %v (must be 'beginner', 'intermediate', or 'advanced')", fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
