package transformer

import (
	"context"

	html2md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/ka2n/dataprovider/api/value"
	"github.com/mackee/go-readability"
	"github.com/morikuni/failure/v2"
)

// HTMLMarkdownID is the plugin id of the HTML to markdown transformer
const HTMLMarkdownID = "html_markdown"

// HTMLMarkdownSettings is the configuration of the HTML to markdown
// transformer
type HTMLMarkdownSettings struct {
	// Domain resolves relative links in the fallback converter
	Domain string `mapstructure:"domain"`

	// Readability extracts the main article before converting
	Readability bool `mapstructure:"readability"`
}

// HTMLMarkdown converts an HTML document into markdown text
type HTMLMarkdown struct {
	settings HTMLMarkdownSettings
}

// RegisterHTMLMarkdown registers the HTML to markdown transformer in r
func RegisterHTMLMarkdown(r *plugin.Registry[Transformer]) {
	r.Register(plugin.Definition{
		ID:    HTMLMarkdownID,
		Label: "HTML to Markdown",
		Defaults: plugin.Settings{
			"domain":      "",
			"readability": true,
		},
	}, func(id string, settings plugin.Settings) (Transformer, error) {
		var s HTMLMarkdownSettings
		if err := plugin.Decode(settings, &s); err != nil {
			return nil, err
		}
		return &HTMLMarkdown{settings: s}, nil
	})
}

// IsApplicable implements Transformer
func (t *HTMLMarkdown) IsApplicable(v *value.Value) bool {
	_, ok := textOf(v.Get())
	return ok
}

// Transform implements Transformer
func (t *HTMLMarkdown) Transform(ctx context.Context, v *value.Value) (any, error) {
	body, _ := textOf(v.Get())

	if t.settings.Readability {
		article, err := readability.Extract(body, readability.DefaultOptions())
		if err == nil && article.Root != nil {
			return readability.ToMarkdown(article.Root), nil
		}
	}

	// If readability fails, use html2md as a fallback
	converter := html2md.NewConverter(t.settings.Domain, true, &html2md.Options{})
	md, err := converter.ConvertString(body)
	if err != nil {
		return nil, failure.New(ErrTransform,
			failure.Message("Failed to convert HTML to markdown"),
			failure.Context{"error": err.Error()},
		)
	}
	return md, nil
}
