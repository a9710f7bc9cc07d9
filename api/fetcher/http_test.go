package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/morikuni/failure/v2"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("success returns response payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %s, want GET", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"x":1}`))
		}))
		defer server.Close()

		f, err := NewRegistry(Options{}).CreateInstance(HTTPRequestID, plugin.Settings{
			"url": server.URL + "/a.json",
		})
		if err != nil {
			t.Fatalf("CreateInstance() error = %v", err)
		}

		res, err := f.Fetch(ctx)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if res.PluginID() != HTTPRequestID {
			t.Errorf("PluginID() = %s, want %s", res.PluginID(), HTTPRequestID)
		}
		resp, ok := res.Payload().(*Response)
		if !ok {
			t.Fatalf("Payload() = %T, want *Response", res.Payload())
		}
		if resp.Text() != `{"x":1}` {
			t.Errorf("Text() = %q", resp.Text())
		}
	})

	t.Run("non 200 status is an error", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		f, err := NewRegistry(Options{}).CreateInstance(HTTPRequestID, plugin.Settings{
			"url":             server.URL,
			"request_options": map[string]any{"retries": 3},
		})
		if err != nil {
			t.Fatalf("CreateInstance() error = %v", err)
		}

		_, err = f.Fetch(ctx)
		if !failure.Is(err, ErrStatus) {
			t.Fatalf("Fetch() error = %v, want %v", err, ErrStatus)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1 (client errors are not retried)", got)
		}
	})

	t.Run("server errors are retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		f, err := NewRegistry(Options{}).CreateInstance(HTTPRequestID, plugin.Settings{
			"url":             server.URL,
			"request_options": map[string]any{"retries": 3},
		})
		if err != nil {
			t.Fatalf("CreateInstance() error = %v", err)
		}

		res, err := f.Fetch(ctx)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if got := res.Payload().(*Response).Text(); got != "ok" {
			t.Errorf("Text() = %q, want ok", got)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("calls = %d, want 3", got)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		f, err := NewRegistry(Options{}).CreateInstance(HTTPRequestID, nil)
		if err != nil {
			t.Fatalf("CreateInstance() error = %v", err)
		}
		_, err = f.Fetch(ctx)
		if !failure.Is(err, ErrMissingURL) {
			t.Errorf("Fetch() error = %v, want %v", err, ErrMissingURL)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		u := server.URL
		server.Close()

		f, err := NewRegistry(Options{}).CreateInstance(HTTPRequestID, plugin.Settings{"url": u})
		if err != nil {
			t.Fatalf("CreateInstance() error = %v", err)
		}
		_, err = f.Fetch(ctx)
		if !failure.Is(err, ErrFetch) {
			t.Errorf("Fetch() error = %v, want %v", err, ErrFetch)
		}
	})

	t.Run("invalid type setting", func(t *testing.T) {
		_, err := NewRegistry(Options{}).CreateInstance(HTTPRequestID, plugin.Settings{
			"url":  "https://example.com",
			"type": "ftp",
		})
		if !failure.Is(err, plugin.ErrInvalidSettings) {
			t.Errorf("CreateInstance() error = %v, want %v", err, plugin.ErrInvalidSettings)
		}
	})
}

func TestHTTPFetcher_Internal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/data.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	r := NewRegistry(Options{BaseURL: server.URL})
	f, err := r.CreateInstance(HTTPRequestID, plugin.Settings{
		"url":  "/internal/data.json",
		"type": URLTypeInternal,
	})
	if err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}

	res, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := res.Payload().(*Response).Text(); got != "[]" {
		t.Errorf("Text() = %q, want []", got)
	}
}

func TestHTTPFetcher_Verify(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure"))
	}))
	defer server.Close()

	tests := []struct {
		name    string
		verify  bool
		wantErr bool
	}{
		{name: "verification rejects self-signed certificate", verify: true, wantErr: true},
		{name: "verification disabled", verify: false, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewRegistry(Options{}).CreateInstance(HTTPRequestID, plugin.Settings{
				"url":             server.URL,
				"request_options": map[string]any{"verify": tt.verify, "timeout": 5},
			})
			if err != nil {
				t.Fatalf("CreateInstance() error = %v", err)
			}
			_, err = f.Fetch(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Fetch() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
