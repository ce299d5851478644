package stategraph

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	sgerrors "github.com/randalmurphal/stategraph/pkg/stategraph/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeInput builds a state from loosely typed input, such as parsed JSON
// or command-line key=value pairs.
//
// Fields are matched by their json tag and weakly converted ("25" becomes
// 25, "true" becomes true). Struct states are then checked against their
// `validate` tags. Failures wrap ErrInvalidInput; validation failures also
// carry a *errors.ValidationError for the first bad field.
//
//	type Intake struct {
//	    Name string `json:"name" validate:"required"`
//	    Age  int    `json:"age" validate:"gte=0,lte=150"`
//	}
//	in, err := stategraph.DecodeInput[Intake](map[string]any{"name": "Ada", "age": "36"})
func DecodeInput[S any](input map[string]any) (S, error) {
	var state S

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &state,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return state, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := decoder.Decode(input); err != nil {
		return state, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := ValidateState(state); err != nil {
		return state, err
	}
	return state, nil
}

// ValidateState checks a struct state against its `validate` tags.
// Non-struct states always pass.
func ValidateState(state any) error {
	v := reflect.ValueOf(state)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	err := validate.Struct(v.Interface())
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("%w: %w", ErrInvalidInput, &sgerrors.ValidationError{
			Field:   fe.Namespace(),
			Tag:     fe.Tag(),
			Message: fmt.Sprintf("got %v", fe.Value()),
		})
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
