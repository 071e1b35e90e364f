package apperror

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func formatFieldName(s string) string {
	// recipient_ids -> Recipient Ids
	s = strings.ReplaceAll(s, "_", " ")
	caser := cases.Title(language.English)
	return caser.String(s)
}

// MapValidationError converts binding errors into an INVALID_INPUT AppError
// describing the first failing field.
func MapValidationError(err error) error {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		e := errs[0]
		humanReadableField := formatFieldName(e.Field())

		switch e.Tag() {
		case "required":
			return RequiredField(humanReadableField)
		case "datetime":
			return InvalidField(humanReadableField).WithDetails(map[string]string{
				"format": e.Param(),
			})
		case "oneof":
			return InvalidField(humanReadableField).WithDetails(map[string]string{
				"allowed": e.Param(),
			})
		default:
			return InvalidField(humanReadableField)
		}
	}

	return ErrInvalidInput.WithDetails(err.Error())
}
