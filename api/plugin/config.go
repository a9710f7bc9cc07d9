package plugin

// Config selects a plugin and its settings, as written in a resource
// descriptor.
type Config struct {
	PluginID string   `yaml:"plugin_id" json:"plugin_id"`
	Settings Settings `yaml:"settings,omitempty" json:"settings,omitempty"`

	// Weight orders transformer entries; lower runs first.
	Weight int `yaml:"weight,omitempty" json:"weight,omitempty"`
}
