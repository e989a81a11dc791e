package config

import (
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Manager 基于 viper 的配置读取
type Manager interface {
	// LoadFile 读取 YAML/JSON 配置文件
	LoadFile(path string) error
	// Unmarshal 解析整个配置
	Unmarshal(v any) error
	// UnmarshalKey 解析某个子树或单个值
	UnmarshalKey(key string, v any) error
	IsSet(key string) bool
	GetString(key string) string
	// Watch 配置文件变化时回调，参数为变化的文件路径
	// 回调时文件已重新读入，可直接 Unmarshal/UnmarshalKey 取新值
	Watch(callback func(path string))
}

// decodeHook "3s" 解为 time.Duration，"a,b" 解为 []string（环境变量覆盖列表时用）
var decodeHook = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
))

type manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	callbacks []func(string)
	watching  bool
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	return nil
}

func (m *manager) bindEnv(prefix string) {
	if prefix != "" {
		m.v.SetEnvPrefix(prefix)
	}
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	m.v.AutomaticEnv()
}

func (m *manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v, decodeHook); err != nil {
		return errors.Wrap(err, "unmarshal config")
	}
	return nil
}

func (m *manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.UnmarshalKey(key, v, decodeHook); err != nil {
		return errors.Wrapf(err, "unmarshal config key %s", key)
	}
	return nil
}

func (m *manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

func (m *manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

func (m *manager) Watch(callback func(path string)) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, callback)
	start := !m.watching
	m.watching = true
	m.mu.Unlock()

	if !start {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		m.mu.RLock()
		callbacks := slices.Clone(m.callbacks)
		m.mu.RUnlock()

		for _, cb := range callbacks {
			cb(e.Name)
		}
	})
	m.v.WatchConfig()
}
