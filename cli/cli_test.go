package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ka2n/dataprovider/api"
	"github.com/ka2n/dataprovider/api/cache"
	"github.com/ka2n/dataprovider/config"
	"github.com/morikuni/failure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	configPath string
	calls      *atomic.Int32
}

// newFixture writes a configuration with two resources backed by a local
// upstream and a file cache
func newFixture(t *testing.T) fixture {
	t.Helper()

	calls := &atomic.Int32{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"user":{"name":"ann"}}`))
	}))
	t.Cleanup(upstream.Close)

	dir := t.TempDir()
	resources := filepath.Join(dir, "resources")
	require.NoError(t, os.Mkdir(resources, 0o755))

	write := func(path, content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write(filepath.Join(resources, "users.yml"), fmt.Sprintf(`name: users
label: Users
fetcher:
  plugin_id: http_request
  settings:
    url: %s/users.json
transformer:
  plugins:
    - plugin_id: json_decode
    - plugin_id: array_value_formatter
      settings:
        notation: user.name
        formatter: strtoupper
caching:
  enabled: true
  tags: [node:1]
`, upstream.URL))
	write(filepath.Join(resources, "broken.yml"), `name: broken
fetcher:
  plugin_id: http_request
  settings:
    url: users.json
`)
	write(filepath.Join(dir, "entities.yml"), "entities:\n  - kind: node\n    id: \"1\"\n")

	configPath := filepath.Join(dir, "dataprovider.yml")
	write(configPath, fmt.Sprintf(`resources_dir: %s
entities_file: %s
cache:
  backend: file
  dir: %s
`, resources, filepath.Join(dir, "entities.yml"), filepath.Join(dir, "cache")))

	return fixture{configPath: configPath, calls: calls}
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", f.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestFetchCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "fetch", "users")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]any{
		"resource": "users",
		"contents": map[string]any{"user": map[string]any{"name": "ANN"}},
	}, got)

	// The file cache answers the second run
	_, err = f.run(t, "fetch", "users")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())

	_, err = f.run(t, "--no-cache", "fetch", "users")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestFetchCommand_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "fetch", "missing")
	assert.True(t, failure.Is(err, api.ErrResourceNotFound), "error = %v", err)

	out, err := f.run(t, "fetch", "broken")
	require.NoError(t, err)
	assert.JSONEq(t, `{"resource":"broken","contents":null}`, out)

	_, err = f.run(t, "--policy", "propagate", "fetch", "broken")
	assert.True(t, failure.Is(err, api.ErrFetch), "error = %v", err)

	_, err = f.run(t, "--policy", "ignore", "fetch", "users")
	assert.Error(t, err)
}

func TestCacheCommands(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "fetch", "users")
	require.NoError(t, err)

	out, err := f.run(t, "cache", "invalidate", "--tag", "node:1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 tags")

	_, err = f.run(t, "fetch", "users")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())

	_, err = f.run(t, "cache", "clear")
	require.NoError(t, err)
	_, err = f.run(t, "fetch", "users")
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.calls.Load())

	_, err = f.run(t, "cache", "invalidate")
	assert.True(t, failure.Is(err, ErrInvalidArguments), "error = %v", err)
}

func TestWarmCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "warm")
	require.NoError(t, err)
	assert.Contains(t, out, "Warmed 1 resources")

	_, err = f.run(t, "fetch", "users")
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestListAndPluginsCommands(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "list")
	require.NoError(t, err)
	assert.Regexp(t, `broken\s+http_request\s+0\s+no`, out)
	assert.Regexp(t, `users\s+Users\s+http_request\s+2\s+yes`, out)

	out, err = f.run(t, "plugins")
	require.NoError(t, err)
	assert.Contains(t, out, "http_request")
	assert.Regexp(t, `array_value_formatter\s+Array Value Formatter \(multiple\)`, out)
	assert.Contains(t, out, "regex_replace")
}

func TestValidateCommand(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "validate", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "ok      users")

	out, err = f.run(t, "validate")
	assert.True(t, failure.Is(err, ErrInvalidResources), "error = %v", err)
	assert.Contains(t, out, "invalid broken")
	assert.Contains(t, out, "External URL needs to start with a HTTP protocol")
}

func TestNewStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.Cache
		want    any
		wantErr bool
	}{
		{name: "memory", cfg: config.Cache{Backend: config.BackendMemory}, want: &cache.MemoryStore{}},
		{name: "file", cfg: config.Cache{Backend: config.BackendFile, Dir: t.TempDir()}, want: &cache.FileStore{}},
		{name: "redis", cfg: config.Cache{Backend: config.BackendRedis, RedisAddr: mr.Addr()}, want: &cache.RedisStore{}},
		{name: "none", cfg: config.Cache{Backend: config.BackendNone}, want: cache.Nop{}},
		{name: "unknown", cfg: config.Cache{Backend: "memcached"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeFn, err := newStore(tt.cfg)
			if tt.wantErr {
				assert.True(t, failure.Is(err, ErrUnknownBackend), "error = %v", err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, store)
			if closeFn != nil {
				assert.NoError(t, closeFn())
			}
		})
	}
}

func TestPolicyFlag(t *testing.T) {
	var f policyFlag
	require.NoError(t, f.Set("propagate"))
	assert.True(t, f.IsSet)
	assert.Equal(t, "propagate", f.String())
	assert.Error(t, f.Set("ignore"))
}

func TestLocalURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", localURL(":8080"))
	assert.Equal(t, "http://127.0.0.1:9000", localURL("127.0.0.1:9000"))
}
