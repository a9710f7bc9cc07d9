package fetcher

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/ka2n/dataprovider/log"
	"github.com/morikuni/failure/v2"
	"golang.org/x/net/publicsuffix"
)

// HTTPRequestID is the plugin id of the HTTP request fetcher
const HTTPRequestID = "http_request"

// URL types of the HTTP request fetcher
const (
	URLTypeInternal = "internal"
	URLTypeExternal = "external"
)

// defaultReadTimeout mirrors the usual default socket timeout of 60 seconds
const defaultReadTimeout = 60

// HTTPSettings is the configuration of the HTTP request fetcher
type HTTPSettings struct {
	URL            string         `mapstructure:"url"`
	Type           string         `mapstructure:"type" validate:"oneof=internal external"`
	RequestOptions RequestOptions `mapstructure:"request_options"`
}

// RequestOptions tunes the outbound request. Timeouts are in seconds and 0
// means no limit.
//
// Zero timeouts let a slow upstream block the caller indefinitely; set at
// least Timeout for anything user facing.
type RequestOptions struct {
	// Verify enables TLS certificate verification. Nil means true.
	Verify         *bool             `mapstructure:"verify"`
	Timeout        float64           `mapstructure:"timeout" validate:"gte=0"`
	ReadTimeout    float64           `mapstructure:"read_timeout" validate:"gte=0"`
	ConnectTimeout float64           `mapstructure:"connect_timeout" validate:"gte=0"`
	Retries        int               `mapstructure:"retries" validate:"gte=0"`
	Headers        map[string]string `mapstructure:"headers"`
}

func (o RequestOptions) verify() bool {
	return o.Verify == nil || *o.Verify
}

// Response is the payload of the HTTP request fetcher
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text returns the body as a string
func (r *Response) Text() string {
	return string(r.Body)
}

// HTTPFetcher fetches a resource with a GET request
type HTTPFetcher struct {
	id       string
	settings HTTPSettings
	baseURL  string
	client   *http.Client
}

// RegisterHTTP registers the HTTP request fetcher in r
func RegisterHTTP(r *plugin.Registry[Fetcher], opts Options) {
	r.Register(plugin.Definition{
		ID:    HTTPRequestID,
		Label: "HTTP Request",
		Defaults: plugin.Settings{
			"url":  "",
			"type": URLTypeExternal,
			"request_options": map[string]any{
				"verify":          true,
				"timeout":         0,
				"read_timeout":    defaultReadTimeout,
				"connect_timeout": 0,
			},
		},
	}, func(id string, settings plugin.Settings) (Fetcher, error) {
		return NewHTTPFetcher(id, settings, opts)
	})
}

// NewHTTPFetcher creates an HTTP fetcher from already merged settings
func NewHTTPFetcher(id string, settings plugin.Settings, opts Options) (*HTTPFetcher, error) {
	var s HTTPSettings
	if err := plugin.Decode(settings, &s); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, failure.Wrap(err)
	}

	transport := opts.Transport
	if transport == nil {
		transport = newTransport(s.RequestOptions)
	}

	return &HTTPFetcher{
		id:       id,
		settings: s,
		baseURL:  opts.BaseURL,
		client: &http.Client{
			Transport: log.Transport(transport),
			Timeout:   seconds(s.RequestOptions.Timeout),
			Jar:       jar,
		},
	}, nil
}

func newTransport(o RequestOptions) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{
		Timeout:   seconds(o.ConnectTimeout),
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.ResponseHeaderTimeout = seconds(o.ReadTimeout)
	if !o.verify() {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per resource
	}
	return t
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Settings returns the decoded settings of the fetcher
func (f *HTTPFetcher) Settings() HTTPSettings {
	return f.settings
}

// Validate implements plugin.Validator. External URLs need an HTTP scheme
// and internal URLs must be absolute paths.
func (f *HTTPFetcher) Validate() error {
	raw := strings.TrimSpace(f.settings.URL)
	if raw == "" {
		return failure.New(ErrMissingURL,
			failure.Message("Resource URL is required"),
			failure.Context{"plugin": f.id},
		)
	}
	switch f.settings.Type {
	case URLTypeExternal:
		if !strings.HasPrefix(raw, "http") {
			return failure.New(ErrFetch,
				failure.Message("External URL needs to start with a HTTP protocol"),
				failure.Context{"url": raw},
			)
		}
	case URLTypeInternal:
		if !strings.HasPrefix(raw, "/") {
			return failure.New(ErrFetch,
				failure.Message("Internal URL needs to start with a forward slash"),
				failure.Context{"url": raw},
			)
		}
	}
	return nil
}

// ResolveURL returns the absolute URL the fetcher requests
func (f *HTTPFetcher) ResolveURL() (string, error) {
	raw := strings.TrimSpace(f.settings.URL)
	if raw == "" {
		return "", failure.New(ErrMissingURL,
			failure.Message("Resource URL is required"),
			failure.Context{"plugin": f.id},
		)
	}

	if f.settings.Type != URLTypeInternal {
		return raw, nil
	}

	base, err := url.Parse(f.baseURL)
	if err != nil || base.Host == "" {
		return "", failure.New(ErrFetch,
			failure.Message("Internal URL needs a base URL"),
			failure.Context{"url": raw, "base_url": f.baseURL},
		)
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", failure.Wrap(err, failure.Context{"url": raw})
	}
	return base.ResolveReference(ref).String(), nil
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context) (*Result, error) {
	u, err := f.ResolveURL()
	if err != nil {
		return nil, err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(f.settings.RequestOptions.Retries)),
		ctx,
	)
	resp, err := backoff.RetryWithData(func() (*Response, error) {
		resp, err := f.do(ctx, u)
		if err != nil && failure.Is(err, ErrStatus) && resp != nil && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}, b)
	if err != nil {
		return nil, err
	}

	return NewResult(resp, f.id), nil
}

func (f *HTTPFetcher) do(ctx context.Context, u string) (*Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, failure.New(ErrFetch,
			failure.Message("Invalid request URL"),
			failure.Context{"url": u, "error": err.Error()},
		)
	}
	req.Header.Set("User-Agent", "dataprovider")
	for k, v := range f.settings.RequestOptions.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, failure.New(ErrFetch,
			failure.Message("HTTP request failed"),
			failure.Context{"url": u, "error": err.Error()},
		)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(newIdleReader(resp.Body, seconds(f.settings.RequestOptions.ReadTimeout), cancel))
	if err != nil {
		return nil, failure.New(ErrFetch,
			failure.Message("Failed to read HTTP response"),
			failure.Context{"url": u, "error": err.Error()},
		)
	}

	r := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}
	if resp.StatusCode != http.StatusOK {
		return r, failure.New(ErrStatus,
			failure.Message("Resource failed for the HTTP request"),
			failure.Context{"url": u, "status": resp.Status},
		)
	}
	return r, nil
}

// idleReader cancels the request when no data arrives within timeout.
type idleReader struct {
	r     io.Reader
	d     time.Duration
	timer *time.Timer
}

func newIdleReader(r io.Reader, d time.Duration, cancel context.CancelFunc) io.Reader {
	if d <= 0 {
		return r
	}
	return &idleReader{r: r, d: d, timer: time.AfterFunc(d, cancel)}
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if err != nil {
		r.timer.Stop()
	} else {
		r.timer.Reset(r.d)
	}
	return n, err
}
