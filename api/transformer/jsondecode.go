package transformer

import (
	"context"
	"encoding/json"

	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/ka2n/dataprovider/api/value"
	"github.com/ka2n/dataprovider/log"
)

// JSONDecodeID is the plugin id of the JSON decode transformer
const JSONDecodeID = "json_decode"

// JSONDecode decodes the body of an HTTP response, or a string, into
// map[string]any / []any values.
type JSONDecode struct{}

// RegisterJSONDecode registers the JSON decode transformer in r
func RegisterJSONDecode(r *plugin.Registry[Transformer]) {
	r.Register(plugin.Definition{
		ID:               JSONDecodeID,
		Label:            "JSON Decode",
		SupportsMultiple: true,
	}, func(id string, settings plugin.Settings) (Transformer, error) {
		return &JSONDecode{}, nil
	})
}

// IsApplicable implements Transformer
func (t *JSONDecode) IsApplicable(v *value.Value) bool {
	_, ok := textOf(v.Get())
	return ok
}

// Transform implements Transformer. Malformed JSON yields nil rather than
// an error.
func (t *JSONDecode) Transform(ctx context.Context, v *value.Value) (any, error) {
	text, _ := textOf(v.Get())

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		log.Debug("JSON decode failed", "error", err.Error())
		return nil, nil
	}
	return decoded, nil
}
