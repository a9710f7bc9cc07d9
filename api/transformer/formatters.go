package transformer

import (
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ka2n/dataprovider/api/value"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

// Callback is a named hook usable by the "callback" formatter
type Callback func(string) string

// Formatter formats one string value
type Formatter struct {
	Label   string
	Process func(s string, settings map[string]any) (string, error)
}

// DefaultCallbacks are always available to the "callback" formatter
var DefaultCallbacks = map[string]Callback{
	"ucfirst": func(s string) string {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError {
			return s
		}
		return string(unicode.ToUpper(r)) + s[size:]
	},
	"ucwords": func(s string) string {
		words := strings.Split(s, " ")
		for i, w := range words {
			r, size := utf8.DecodeRuneInString(w)
			if r != utf8.RuneError {
				words[i] = string(unicode.ToUpper(r)) + w[size:]
			}
		}
		return strings.Join(words, " ")
	},
	"strrev": func(s string) string {
		return string(lo.Reverse([]rune(s)))
	},
	"htmlspecialchars": html.EscapeString,
	"urlencode":        url.QueryEscape,
}

// Formatters returns the formatters of the array value formatter.
// callbacks are added to DefaultCallbacks, overriding on name clashes.
func Formatters(callbacks map[string]Callback) map[string]Formatter {
	hooks := lo.Assign(DefaultCallbacks, callbacks)

	return map[string]Formatter{
		"trim": {
			Label: "Trim",
			Process: func(s string, _ map[string]any) (string, error) {
				return strings.TrimSpace(s), nil
			},
		},
		"strtolower": {
			Label: "String to Lower",
			Process: func(s string, _ map[string]any) (string, error) {
				return strings.ToLower(s), nil
			},
		},
		"strtoupper": {
			Label: "String to Upper",
			Process: func(s string, _ map[string]any) (string, error) {
				return strings.ToUpper(s), nil
			},
		},
		"regex_replace": {
			Label:   "Regex Replace",
			Process: regexReplace,
		},
		"callback": {
			Label: "Callback",
			Process: func(s string, settings map[string]any) (string, error) {
				name, _ := settings["callback"].(string)
				if name == "" {
					return s, nil
				}
				hook, ok := hooks[name]
				if !ok {
					return "", failure.New(ErrInvalidFormatter,
						failure.Message("The callback does not exist"),
						failure.Context{"callback": name},
					)
				}
				return hook(s), nil
			},
		},
	}
}

// FormatterOptions returns formatter name -> label sorted by name
func FormatterOptions(formatters map[string]Formatter) [][2]string {
	names := lo.Keys(formatters)
	sort.Strings(names)
	return lo.Map(names, func(name string, _ int) [2]string {
		return [2]string{name, formatters[name].Label}
	})
}

// regexReplace replaces matches of settings["pattern"] with
// settings["replacement"]. Nothing happens unless a pattern is set and the
// replacement is non-empty. Replacements use Go's $1 / ${name} syntax.
func regexReplace(s string, settings map[string]any) (string, error) {
	pattern, ok := settings["pattern"].(string)
	if !ok {
		return s, nil
	}
	replacement, _ := settings["replacement"].(string)
	if value.IsEmpty(replacement) {
		return s, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", failure.New(ErrTransform,
			failure.Message("Invalid regular expression"),
			failure.Context{"pattern": pattern, "error": err.Error()},
		)
	}
	return re.ReplaceAllString(s, replacement), nil
}
