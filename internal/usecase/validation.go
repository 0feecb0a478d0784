package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateUpsertCustomerInput(input UpsertCustomerInput) []ValidationError {
	var errors []ValidationError

	errors = append(errors, validateEmail(input.Email)...)

	if len(input.Name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}

	if strings.TrimSpace(input.Phone) != "" && !isValidPhoneNumber(input.Phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}

	for _, tag := range input.Tags {
		if strings.Contains(tag, ",") {
			errors = append(errors, ValidationError{"tags", "must not contain commas"})
			break
		}
	}

	return errors
}

func ValidateCaptureLeadInput(input CaptureLeadInput) []ValidationError {
	var errors []ValidationError

	errors = append(errors, validateEmail(input.Email)...)

	if len(input.Name) > 200 {
		errors = append(errors, ValidationError{"nombre", "must not exceed 200 characters"})
	}
	if len(input.Message) > 5000 {
		errors = append(errors, ValidationError{"mensaje", "must not exceed 5000 characters"})
	}

	return errors
}

func ValidateSaveTemplateInput(input SaveTemplateInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.CourseName) == "" {
		errors = append(errors, ValidationError{"courseName", "is required"})
	}
	if strings.TrimSpace(input.Subject) == "" {
		errors = append(errors, ValidationError{"subject", "is required"})
	}

	return errors
}

func validateEmail(email string) []ValidationError {
	if strings.TrimSpace(email) == "" {
		return []ValidationError{{"email", "is required"}}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return []ValidationError{{"email", "is invalid"}}
	}
	return nil
}

// Telefones chilenos e internacionais: 8 a 15 dígitos (E.164)
func isValidPhoneNumber(phone string) bool {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	return len(cleaned) >= 8 && len(cleaned) <= 15
}

func validationFailed(errs []ValidationError) *DomainError {
	msg := "validation failed: "
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+" ("+e.Message+")")
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: msg + strings.Join(parts, ", "),
		Details: errs,
	}
}
