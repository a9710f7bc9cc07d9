package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ka2n/dataprovider/api"
	"github.com/ka2n/dataprovider/api/fetcher"
	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/ka2n/dataprovider/api/resource"
	"github.com/ka2n/dataprovider/api/transformer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, policy api.ErrorPolicy) *httptest.Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"x":1}`))
	}))
	t.Cleanup(upstream.Close)

	descriptor := func(name, path string) *resource.Descriptor {
		return &resource.Descriptor{
			Name:  name,
			Label: strings.ToUpper(name),
			Fetcher: plugin.Config{PluginID: fetcher.HTTPRequestID, Settings: plugin.Settings{
				"url": upstream.URL + path,
			}},
			Transformer: resource.Transformer{Plugins: []plugin.Config{{PluginID: transformer.JSONDecodeID}}},
		}
	}

	reg := prometheus.NewRegistry()
	m := api.NewResourceManager(api.Options{
		Resources: resource.NewMapRepository(descriptor("a", "/a.json"), descriptor("broken", "/broken")),
		Policy:    policy,
		Metrics:   api.NewMetrics(reg),
	})

	srv := httptest.NewServer(New(m, reg))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
	return res.StatusCode
}

func TestServer_Resource(t *testing.T) {
	srv := newTestServer(t, api.PolicyLog)

	var got Response
	status := getJSON(t, srv.URL+ResourcePath+"/a", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, Response{Resource: "a", Contents: map[string]any{"x": float64(1)}}, got)
}

func TestServer_NotFound(t *testing.T) {
	srv := newTestServer(t, api.PolicyLog)

	var got map[string]string
	status := getJSON(t, srv.URL+ResourcePath+"/missing", &got)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, got["error"], "missing")
}

func TestServer_FailedFetch(t *testing.T) {
	t.Run("log policy degrades to empty contents", func(t *testing.T) {
		srv := newTestServer(t, api.PolicyLog)

		var got Response
		status := getJSON(t, srv.URL+ResourcePath+"/broken", &got)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, Response{Resource: "broken"}, got)
	})

	t.Run("propagate policy is a bad gateway", func(t *testing.T) {
		srv := newTestServer(t, api.PolicyPropagate)

		var got map[string]string
		status := getJSON(t, srv.URL+ResourcePath+"/broken", &got)
		assert.Equal(t, http.StatusBadGateway, status)
		assert.NotEmpty(t, got["error"])
	})
}

func TestServer_List(t *testing.T) {
	srv := newTestServer(t, api.PolicyLog)

	var got []Summary
	status := getJSON(t, srv.URL+ResourcePath, &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []Summary{
		{Name: "a", Label: "A", Fetcher: fetcher.HTTPRequestID, Transformers: 1},
		{Name: "broken", Label: "BROKEN", Fetcher: fetcher.HTTPRequestID, Transformers: 1},
	}, got)
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t, api.PolicyLog)

	var got Response
	getJSON(t, srv.URL+ResourcePath+"/a", &got)

	res, err := http.Get(srv.URL + MetricsPath)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	buf := new(strings.Builder)
	_, err = io.Copy(buf, res.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `dataprovider_fetch_total{resource="a",result="ok"} 1`)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, api.PolicyLog)

	res, err := http.Get(srv.URL + HealthPath)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
