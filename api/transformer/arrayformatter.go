package transformer

import (
	"context"
	"strings"

	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/ka2n/dataprovider/api/value"
	"github.com/ka2n/dataprovider/log"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

// ArrayValueFormatterID is the plugin id of the array value formatter
const ArrayValueFormatterID = "array_value_formatter"

// ArrayValueFormatterSettings is the configuration of the array value
// formatter
type ArrayValueFormatterSettings struct {
	// Notation is a dot separated path to the value to format, e.g.
	// "user.name" or "items.0.title". It is case sensitive.
	Notation string `mapstructure:"notation"`

	// Formatter is the name of the formatter to apply
	Formatter string `mapstructure:"formatter"`

	// Settings are formatter specific
	Settings map[string]any `mapstructure:"settings"`
}

// ArrayValueFormatter formats a single nested value of a structured value
type ArrayValueFormatter struct {
	settings   ArrayValueFormatterSettings
	formatters map[string]Formatter
	callbacks  map[string]bool
}

// RegisterArrayValueFormatter registers the array value formatter in r
func RegisterArrayValueFormatter(r *plugin.Registry[Transformer], opts Options) {
	formatters := Formatters(opts.Callbacks)
	callbacks := lo.MapValues(lo.Assign(DefaultCallbacks, opts.Callbacks), func(Callback, string) bool { return true })

	r.Register(plugin.Definition{
		ID:               ArrayValueFormatterID,
		Label:            "Array Value Formatter",
		SupportsMultiple: true,
		Defaults: plugin.Settings{
			"notation":  "",
			"formatter": "",
			"settings":  map[string]any{},
		},
	}, func(id string, settings plugin.Settings) (Transformer, error) {
		var s ArrayValueFormatterSettings
		if err := plugin.Decode(settings, &s); err != nil {
			return nil, err
		}
		return &ArrayValueFormatter{settings: s, formatters: formatters, callbacks: callbacks}, nil
	})
}

// Validate implements plugin.Validator
func (t *ArrayValueFormatter) Validate() error {
	if t.settings.Formatter == "" {
		return nil
	}
	if _, ok := t.formatters[t.settings.Formatter]; !ok {
		return failure.New(ErrInvalidFormatter,
			failure.Message("The formatter is invalid"),
			failure.Context{"formatter": t.settings.Formatter},
		)
	}
	if t.settings.Formatter != "callback" {
		return nil
	}
	name, _ := t.settings.Settings["callback"].(string)
	if name != "" && !t.callbacks[name] {
		return failure.New(ErrInvalidFormatter,
			failure.Message("The callback does not exist"),
			failure.Context{"callback": name},
		)
	}
	return nil
}

// IsApplicable implements Transformer
func (t *ArrayValueFormatter) IsApplicable(v *value.Value) bool {
	switch v.Get().(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// Transform implements Transformer. Formatter failures are logged and leave
// the value unchanged.
func (t *ArrayValueFormatter) Transform(ctx context.Context, v *value.Value) (any, error) {
	current := v.Get()
	if t.settings.Notation == "" {
		return current, nil
	}

	updated, err := t.format(current)
	if err != nil {
		log.Warn("Array value formatter failed",
			"notation", t.settings.Notation,
			"formatter", t.settings.Formatter,
			"error", err.Error(),
		)
		return current, nil
	}
	return updated, nil
}

func (t *ArrayValueFormatter) format(current any) (any, error) {
	formatter, ok := t.formatters[t.settings.Formatter]
	if !ok {
		return nil, failure.New(ErrInvalidFormatter,
			failure.Message("The formatter is invalid"),
			failure.Context{"formatter": t.settings.Formatter},
		)
	}

	parents := strings.Split(t.settings.Notation, ".")
	nested, ok := GetPath(current, parents)
	if !ok || value.IsEmpty(nested) {
		return current, nil
	}

	s, ok := nested.(string)
	if !ok {
		return nil, failure.New(ErrTransform,
			failure.Message("Only string values can be formatted"),
			failure.Context{"notation": t.settings.Notation},
		)
	}

	formatted, err := formatter.Process(s, t.settings.Settings)
	if err != nil {
		return nil, err
	}
	if formatted == s {
		return current, nil
	}
	return SetPath(current, parents, formatted), nil
}
