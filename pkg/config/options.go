package config

import "github.com/spf13/viper"

// Option 管理器选项
type Option func(*manager)

// WithViper 复用外部 viper 实例，需放在其它选项之前
func WithViper(v *viper.Viper) Option {
	return func(m *manager) {
		m.v = v
	}
}

// WithDefaults 以点分路径设置默认值，如 "gateway.codec"
func WithDefaults(defaults map[string]any) Option {
	return func(m *manager) {
		for key, value := range defaults {
			m.v.SetDefault(key, value)
		}
	}
}

// WithEnvPrefix 开启环境变量覆盖，prefix 为 "DICEDECK" 时 DICEDECK_GATEWAY_MODE 覆盖 gateway.mode
func WithEnvPrefix(prefix string) Option {
	return func(m *manager) {
		m.bindEnv(prefix)
	}
}
