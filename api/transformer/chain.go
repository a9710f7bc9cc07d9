package transformer

import (
	"context"

	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/ka2n/dataprovider/api/value"
	"github.com/ka2n/dataprovider/log"
	"github.com/morikuni/failure/v2"
)

// Empty is the result of a chain without transformers
func Empty() any {
	return []any{}
}

// Chain runs steps in order over input and returns the final value.
//
// Each step receives the previous output in a fresh value.Value. Steps
// without a plugin id and steps whose transformer is not applicable are
// skipped. An empty chain yields Empty(), never input itself.
func Chain(ctx context.Context, registry *plugin.Registry[Transformer], steps []plugin.Config, input any) (any, error) {
	if len(steps) == 0 {
		return Empty(), nil
	}

	v := value.New(input)
	for i, step := range steps {
		if step.PluginID == "" {
			continue
		}

		instance, err := registry.CreateInstance(step.PluginID, step.Settings)
		if err != nil {
			return nil, err
		}

		if !instance.IsApplicable(v) {
			log.Debug("Transformer not applicable", "plugin", step.PluginID, "step", i)
			continue
		}

		out, err := instance.Transform(ctx, v)
		if err != nil {
			return nil, failure.Wrap(err, failure.Context{"plugin": step.PluginID})
		}
		v = value.New(out)
	}
	return v.Get(), nil
}
