package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxJSONBody = 1 << 20

type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	validatorOnce sync.Once
	validatorSvc  *requestValidator
)

// getValidator returns the request validator, with english messages that use
// json field names
func getValidator() *requestValidator {
	validatorOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		validatorSvc = &requestValidator{validate: v, translator: trans}
	})
	return validatorSvc
}

// bindError is a client error in a request body
type bindError struct {
	msg string
}

func (e *bindError) Error() string {
	return e.msg
}

// parseJSON decodes a JSON body into T and validates it
func parseJSON[T any](r *http.Request) (T, error) {
	var dst T

	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dst, &bindError{msg: "empty body"}
		}
		return dst, &bindError{msg: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if dec.More() {
		return dst, &bindError{msg: "unexpected trailing data"}
	}

	v := getValidator()
	if err := v.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return dst, &bindError{msg: verrs[0].Translate(v.translator)}
		}
		return dst, fmt.Errorf("validating request: %w", err)
	}
	return dst, nil
}
