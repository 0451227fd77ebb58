package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/easysms/pkg/errors"
)

func TestConfig_GetDotPath(t *testing.T) {
	cfg := NewConfig(map[string]any{
		"a":     map[string]any{"b": map[string]any{"c": 5}},
		"a.b.c": 99,
		"list":  []any{"x", map[string]any{"y": "z"}},
		"name":  "aliyun",
	})

	tests := []struct {
		name string
		key  string
		def  []any
		want any
	}{
		{name: "exact top-level key wins", key: "a.b.c", want: 99},
		{name: "path traversal", key: "a.b", want: map[string]any{"c": 5}},
		{name: "missing leaf returns default", key: "a.b.x", def: []any{"default"}, want: "default"},
		{name: "missing root returns nil", key: "x.y.z", want: nil},
		{name: "plain key without dot", key: "name", want: "aliyun"},
		{name: "plain missing key", key: "nope", def: []any{1}, want: 1},
		{name: "sequence index", key: "list.1.y", want: "z"},
		{name: "sequence out of range", key: "list.5", def: []any{"d"}, want: "d"},
		{name: "scalar is not indexable", key: "name.first", def: []any{"d"}, want: "d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Get(tt.key, tt.def...))
		})
	}
}

func TestConfig_FlatAccessors(t *testing.T) {
	cfg := NewConfig(map[string]any{
		"a":   map[string]any{"b": 1},
		"key": "value",
	})

	_, ok := cfg.Lookup("a.b")
	assert.False(t, ok, "Lookup never walks paths")
	assert.True(t, cfg.Has("key"))

	cfg.Set("missing", "x")
	assert.False(t, cfg.Has("missing"), "Set must not add absent keys")

	cfg.Set("key", "changed")
	assert.Equal(t, "changed", cfg.Get("key"))

	cfg.Delete("missing")
	cfg.Delete("key")
	assert.False(t, cfg.Has("key"))
	assert.Equal(t, 1, cfg.Len())
}

func TestConfig_NilSafe(t *testing.T) {
	var cfg *Config
	assert.Equal(t, "d", cfg.Get("a.b", "d"))
	assert.Equal(t, 0, cfg.Len())
	assert.Empty(t, cfg.All())
}

func TestConfig_TypedGetters(t *testing.T) {
	cfg := NewConfig(map[string]any{
		"timeout":  2.5,
		"retries":  "3",
		"enabled":  "true",
		"port":     8080,
		"wait":     "150ms",
		"list":     []any{"a", 2},
		"csv":      "x, y,,z",
		"options":  map[string]any{"proxy": "http://proxy"},
		"endpoint": "https://example.com",
	})

	assert.Equal(t, 2500*time.Millisecond, cfg.GetDuration("timeout", time.Second))
	assert.Equal(t, 150*time.Millisecond, cfg.GetDuration("wait", time.Second))
	assert.Equal(t, time.Second, cfg.GetDuration("missing", time.Second))
	assert.Equal(t, 3, cfg.GetInt("retries", 0))
	assert.Equal(t, 8080, cfg.GetInt("port", 0))
	assert.True(t, cfg.GetBool("enabled", false))
	assert.Equal(t, "8080", cfg.GetString("port", ""))
	assert.Equal(t, "https://example.com", cfg.GetString("endpoint", ""))
	assert.Equal(t, []string{"a", "2"}, cfg.GetStrings("list"))
	assert.Equal(t, []string{"x", "y", "z"}, cfg.GetStrings("csv"))
	assert.Equal(t, "http://proxy", cfg.Sub("options").GetString("proxy", ""))
	assert.Empty(t, cfg.GetStringMap("endpoint"))
}

func TestConfig_WithDoesNotMutate(t *testing.T) {
	cfg := NewConfig(map[string]any{"a": 1})
	next := cfg.With("timeout", 3)

	assert.False(t, cfg.Has("timeout"))
	assert.Equal(t, 3, next.Get("timeout"))
}

func TestGateways_Order(t *testing.T) {
	gws := NewGateways().
		Add("c", nil).
		Add("a", NewConfig(map[string]any{"k": 1})).
		Add("b", nil)

	assert.Equal(t, []string{"c", "a", "b"}, gws.Names())

	gws.Add("c", NewConfig(map[string]any{"k": 2}))
	assert.Equal(t, []string{"c", "a", "b"}, gws.Names(), "re-adding keeps position")

	cfg, ok := gws.Get("c")
	require.True(t, ok)
	assert.Equal(t, 2, cfg.Get("k"))

	assert.Equal(t, []string{"c", "b"}, gws.Filter([]string{"b", "c", "zzz"}).Names())

	selected := gws.Select([]string{"b", "zzz"})
	assert.Equal(t, []string{"b", "zzz"}, selected.Names())
	zzz, ok := selected.Get("zzz")
	require.True(t, ok)
	assert.Equal(t, 0, zzz.Len())
}

func TestParse_YAMLPreservesOrder(t *testing.T) {
	doc := []byte(`
timeout: 3
default:
  strategy: random
  gateways: [yunpian, aliyun]
gateways:
  yunpian:
    api_key: k1
  aliyun:
    access_key_id: id
    sign_name: easysms
  errorlog:
    file: /tmp/easysms.log
`)

	opts, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, opts.Timeout)
	assert.Equal(t, "random", opts.DefaultStrategy)
	assert.Equal(t, []string{"yunpian", "aliyun"}, opts.DefaultGateways)
	assert.Equal(t, []string{"yunpian", "aliyun", "errorlog"}, opts.Gateways.Names())
	assert.Equal(t, "easysms", opts.Gateway("aliyun").GetString("sign_name", ""))
	assert.Equal(t, 0, opts.Gateway("unknown").Len())
}

func TestParse_JSONAndDefaults(t *testing.T) {
	opts, err := Parse([]byte(`{"gateways": {"b": {"x": 1}, "a": {}}}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Equal(t, DefaultStrategy, opts.DefaultStrategy)
	assert.Equal(t, []string{"b", "a"}, opts.Gateways.Names())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "root is a list", doc: "- a\n- b\n"},
		{name: "gateways is a list", doc: "gateways: [a, b]\n"},
		{name: "bad timeout", doc: "timeout: soon\n"},
		{name: "broken yaml", doc: "gateways: {a: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsConfigError(err), "got %v", err)
		})
	}
}

func TestLoadFile_WithOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "easysms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateways:\n  log: {}\n"), 0o600))

	opts, err := LoadFile(path, WithStrategy("random"), WithDefaultGateways("log"))
	require.NoError(t, err)

	assert.Equal(t, "random", opts.DefaultStrategy)
	assert.Equal(t, []string{"log"}, opts.DefaultGateways)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.IsConfigError(err))
}

func TestNew_FunctionalOptions(t *testing.T) {
	opts, err := New(
		WithTimeout(0),
		WithGateway("aliyun", map[string]any{"sign_name": "s"}),
		WithGateway("log", nil),
		WithDefaultGateways("log"),
	)
	require.NoError(t, err)

	assert.Equal(t, DefaultTimeout, opts.Timeout, "zero timeout falls back to default")
	assert.Equal(t, []string{"aliyun", "log"}, opts.Gateways.Names())
	assert.True(t, opts.Validate().Valid)
}

func TestWithEnv(t *testing.T) {
	t.Setenv("EASYSMS_TEST_TIMEOUT", "7s")
	t.Setenv("EASYSMS_TEST_DEFAULT_STRATEGY", "random")
	t.Setenv("EASYSMS_TEST_DEFAULT_GATEWAYS", "a, b")

	opts, err := New(WithEnv("EASYSMS_TEST_", filepath.Join(t.TempDir(), "absent.env")))
	require.NoError(t, err)

	assert.Equal(t, 7*time.Second, opts.Timeout)
	assert.Equal(t, "random", opts.DefaultStrategy)
	assert.Equal(t, []string{"a", "b"}, opts.DefaultGateways)
}

func TestOptions_Validate(t *testing.T) {
	opts := &Options{
		Timeout:         -time.Second,
		DefaultGateways: []string{"a", "a", "b"},
		Gateways:        NewGateways().Add("a", nil),
	}

	result := opts.Validate()
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 2)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "UNCONFIGURED_GATEWAY", result.Warnings[0].Code)
	assert.Error(t, result.Err())
}
