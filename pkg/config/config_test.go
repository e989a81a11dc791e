package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayTestConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Codec   string        `mapstructure:"codec" validate:"oneof=json msgpack"`
}

type clientTestConfig struct {
	PlayerID   string            `mapstructure:"player_id" validate:"required"`
	Gateway    gatewayTestConfig `mapstructure:"gateway"`
	Tags       map[string]string `mapstructure:"tags"`
	RedactKeys []string          `mapstructure:"redact_keys"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestManagerLoadAndUnmarshal(t *testing.T) {
	path := writeConfig(t, `
player_id: p-1001
gateway:
  base_url: "http://localhost:8080"
  timeout: 3s
  codec: msgpack
`)

	mgr := NewManager()
	require.NoError(t, mgr.LoadFile(path))

	var cfg clientTestConfig
	require.NoError(t, mgr.Unmarshal(&cfg))
	assert.Equal(t, "p-1001", cfg.PlayerID)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "msgpack", cfg.Gateway.Codec)

	var timeout time.Duration
	require.NoError(t, mgr.UnmarshalKey("gateway.timeout", &timeout))
	assert.Equal(t, 3*time.Second, timeout)
	assert.True(t, mgr.IsSet("gateway.base_url"))
	assert.False(t, mgr.IsSet("gateway.missing"))
}

func TestManagerEnvOverride(t *testing.T) {
	t.Setenv("DICEDECK_TEST_PLAYER_ID", "p-env")
	path := writeConfig(t, "player_id: p-file\n")

	mgr := NewManager(WithEnvPrefix("DICEDECK_TEST"))
	require.NoError(t, mgr.LoadFile(path))

	assert.Equal(t, "p-env", mgr.GetString("player_id"))
}

func TestManagerEnvList(t *testing.T) {
	t.Setenv("DICEDECK_TEST_REDACT_KEYS", "player_id,dice_id")
	path := writeConfig(t, "player_id: p-1\nredact_keys: [token]\n")

	mgr := NewManager(WithEnvPrefix("DICEDECK_TEST"))
	require.NoError(t, mgr.LoadFile(path))

	var cfg clientTestConfig
	require.NoError(t, mgr.Unmarshal(&cfg))
	assert.Equal(t, []string{"player_id", "dice_id"}, cfg.RedactKeys)
}

func TestManagerDefaults(t *testing.T) {
	mgr := NewManager(WithDefaults(map[string]any{"gateway.codec": "json"}))
	assert.Equal(t, "json", mgr.GetString("gateway.codec"))
}

func TestMergeConfig(t *testing.T) {
	defaults := &clientTestConfig{
		PlayerID: "default",
		Gateway:  gatewayTestConfig{BaseURL: "http://a", Timeout: time.Second, Codec: "json"},
		Tags:     map[string]string{"region": "cn"},
	}
	user := &clientTestConfig{
		Gateway: gatewayTestConfig{Timeout: 5 * time.Second},
		Tags:    map[string]string{"channel": "beta"},
	}

	merged, err := MergeConfig(defaults, user)
	require.NoError(t, err)
	assert.Equal(t, "default", merged.PlayerID)
	assert.Equal(t, "http://a", merged.Gateway.BaseURL)
	assert.Equal(t, 5*time.Second, merged.Gateway.Timeout)
	assert.Equal(t, map[string]string{"region": "cn", "channel": "beta"}, merged.Tags)

	_, err = MergeConfig[clientTestConfig](nil, nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	same, err := MergeConfig(defaults, nil)
	require.NoError(t, err)
	assert.Same(t, defaults, same)
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	ok := clientTestConfig{PlayerID: "p", Gateway: gatewayTestConfig{BaseURL: "http://localhost", Codec: "json"}}
	assert.NoError(t, v.Validate(ok))

	bad := clientTestConfig{Gateway: gatewayTestConfig{BaseURL: "not a url", Codec: "xml"}}
	err := v.Validate(bad)
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, err.Error(), "player_id is required")
	assert.Contains(t, err.Error(), "gateway.base_url must be a valid URL")
	assert.Contains(t, err.Error(), "gateway.codec must be one of [json msgpack]")

	assert.ErrorIs(t, v.Validate(nil), ErrNilConfig)
	assert.NoError(t, v.ValidateField(11, "oneof=1 11"))
	assert.Error(t, v.ValidateField(5, "oneof=1 11"))
}

func TestManagerWatch(t *testing.T) {
	path := writeConfig(t, "player_id: p-1\n")

	mgr := NewManager()
	require.NoError(t, mgr.LoadFile(path))

	changed := make(chan string, 4)
	mgr.Watch(func(p string) { changed <- p })

	require.NoError(t, os.WriteFile(path, []byte("player_id: p-2\n"), 0o644))
	select {
	case p := <-changed:
		assert.Equal(t, filepath.Clean(path), filepath.Clean(p))
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
	require.Eventually(t, func() bool { return mgr.GetString("player_id") == "p-2" }, 5*time.Second, 20*time.Millisecond)
}
