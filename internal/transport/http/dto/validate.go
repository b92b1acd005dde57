package dto

import (
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/omnisphere/auth-service/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("password_strength", validatePasswordStrength)
}

// validatePasswordStrength checks that a password has at least one uppercase
// letter, one lowercase letter, and one number.
func validatePasswordStrength(fl validator.FieldLevel) bool {
	hasUpper := false
	hasLower := false
	hasNumber := false

	for _, char := range fl.Field().String() {
		if unicode.IsUpper(char) {
			hasUpper = true
		}
		if unicode.IsLower(char) {
			hasLower = true
		}
		if unicode.IsNumber(char) {
			hasNumber = true
		}
		if hasUpper && hasLower && hasNumber {
			return true
		}
	}

	return hasUpper && hasLower && hasNumber
}

// validateStruct runs tag validation and maps the first failure to a domain
// error the transport layer can render.
func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return domain.ErrInvalidField("body", err.Error())
	}

	fe := verrs[0]
	field := jsonFieldName(fe)
	switch fe.Tag() {
	case "required":
		return domain.ErrMissingField(field)
	case "email":
		return domain.ErrInvalidField(field, "invalid format")
	case "min":
		if field == "password" || field == "new_password" {
			return domain.ErrWeakPassword("min length " + fe.Param())
		}
		return domain.ErrInvalidField(field, "too short")
	case "max":
		return domain.ErrInvalidField(field, "too long")
	case "len", "numeric":
		return domain.ErrInvalidField(field, "invalid format")
	case "password_strength":
		return domain.ErrWeakPassword("must contain upper, lower, and digit")
	default:
		return domain.ErrInvalidField(field, "invalid")
	}
}

// jsonFieldName derives the wire name from the struct field. The DTOs keep
// json tags aligned with lowercased field names, so this stays a simple map.
func jsonFieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "Email":
		return "email"
	case "Password":
		return "password"
	case "NewPassword":
		return "new_password"
	case "Code":
		return "code"
	case "RefreshToken":
		return "refresh_token"
	case "Username":
		return "username"
	default:
		return fe.Field()
	}
}
