package plugin

import (
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/morikuni/failure/v2"
)

var validate = validator.New()

// Decode decodes settings into the struct pointed to by out and validates
// it with its `validate` tags. Scalar types are converted weakly so that
// "30" and 30 both decode into an int field.
func Decode(settings Settings, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return failure.Wrap(err)
	}

	if err := decoder.Decode(map[string]any(settings)); err != nil {
		return failure.New(ErrInvalidSettings,
			failure.Message("Plugin settings could not be decoded"),
			failure.Context{"error": err.Error()},
		)
	}

	if err := validate.Struct(out); err != nil {
		return failure.New(ErrInvalidSettings,
			failure.Message("Plugin settings are invalid"),
			failure.Context{"error": err.Error()},
		)
	}
	return nil
}
