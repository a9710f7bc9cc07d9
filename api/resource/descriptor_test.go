package resource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ka2n/dataprovider/api/cache"
	"github.com/ka2n/dataprovider/api/plugin"
	"github.com/morikuni/failure/v2"
)

const articlesYAML = `name: articles
label: Articles
fetcher:
  plugin_id: http_request
  settings:
    url: https://api.example.com/a.json
    type: external
transformer:
  plugins:
    - plugin_id: array_value_formatter
      weight: 10
      settings:
        notation: user.name
        formatter: strtoupper
    - plugin_id: json_decode
      weight: -5
caching:
  enabled: true
  expired: +1 day
  recursive: true
  exclude:
    entity_types: [user]
  tags: |
    node:1

    node:2
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	d, err := LoadFile(writeFile(t, t.TempDir(), "articles.yml", articlesYAML))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if d.Name != "articles" || d.Label != "Articles" {
		t.Errorf("name/label = %q/%q", d.Name, d.Label)
	}
	if d.Fetcher.PluginID != "http_request" || d.Fetcher.Settings["url"] != "https://api.example.com/a.json" {
		t.Errorf("Fetcher = %+v", d.Fetcher)
	}
	if diff := cmp.Diff(Tags{"node:1", "node:2"}, d.Caching.Tags); diff != "" {
		t.Errorf("Caching.Tags mismatch (-want +got):\n%s", diff)
	}
	if !d.Caching.Enabled || !d.Caching.Recursive || !d.Excluded("user") || d.Excluded("node") {
		t.Errorf("Caching = %+v", d.Caching)
	}

	ids := []string{}
	for _, step := range d.Transformers() {
		ids = append(ids, step.PluginID)
	}
	if diff := cmp.Diff([]string{"json_decode", "array_value_formatter"}, ids); diff != "" {
		t.Errorf("Transformers() order mismatch (-want +got):\n%s", diff)
	}
}

func TestTags_List(t *testing.T) {
	d, err := LoadFile(writeFile(t, t.TempDir(), "r.yml", "name: r\ncaching:\n  tags: [node:1, term:3]\n"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if diff := cmp.Diff(Tags{"node:1", "term:3"}, d.Caching.Tags); diff != "" {
		t.Errorf("Caching.Tags mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptor_Transformers_StableWeights(t *testing.T) {
	d := &Descriptor{Transformer: Transformer{Plugins: []plugin.Config{
		{PluginID: "b"},
		{PluginID: "a"},
		{PluginID: "first", Weight: -1},
		{PluginID: "c"},
	}}}

	var ids []string
	for _, step := range d.Transformers() {
		ids = append(ids, step.PluginID)
	}
	if diff := cmp.Diff([]string{"first", "b", "a", "c"}, ids); diff != "" {
		t.Errorf("Transformers() mismatch (-want +got):\n%s", diff)
	}
	if d.Transformer.Plugins[0].PluginID != "b" {
		t.Error("Transformers() reordered the descriptor")
	}
}

func TestDescriptor_Keys(t *testing.T) {
	d := &Descriptor{Name: "articles"}
	if got := d.CacheKey(); got != "data_provider:response:articles" {
		t.Errorf("CacheKey() = %q", got)
	}
	if got := d.BaseTag(); got != "config:data_provider.resource.articles" {
		t.Errorf("BaseTag() = %q", got)
	}
}

func TestDescriptor_ExpiresAt(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	permanent := &Descriptor{}
	got, err := permanent.ExpiresAt(now)
	if err != nil || got != cache.Permanent {
		t.Errorf("ExpiresAt() = %v, %v; want permanent", got, err)
	}

	day := &Descriptor{Caching: Caching{Expired: "+1 day"}}
	got, err = day.ExpiresAt(now)
	if err != nil || !got.Equal(now.AddDate(0, 0, 1)) {
		t.Errorf("ExpiresAt() = %v, %v; want %v", got, err, now.AddDate(0, 0, 1))
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "articles.yml", articlesYAML)
	writeFile(t, dir, "weather.yaml", "fetcher:\n  plugin_id: http_request\n")
	writeFile(t, dir, "README.md", "not a resource")

	r, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	list, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, d := range list {
		names = append(names, d.Name)
	}
	if diff := cmp.Diff([]string{"articles", "weather"}, names); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	if _, err := r.Get(context.Background(), "missing"); !failure.Is(err, ErrResourceNotFound) {
		t.Errorf("Get() error = %v, want %v", err, ErrResourceNotFound)
	}
}

func TestLoadDir_Duplicate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yml", "name: same\n")
	writeFile(t, dir, "b.yml", "name: same\n")

	if _, err := LoadDir(dir); !failure.Is(err, ErrInvalidDescriptor) {
		t.Errorf("LoadDir() error = %v, want %v", err, ErrInvalidDescriptor)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yml", "name: [unterminated\n")
	if _, err := LoadFile(path); !failure.Is(err, ErrInvalidDescriptor) {
		t.Errorf("LoadFile() error = %v, want %v", err, ErrInvalidDescriptor)
	}
}
