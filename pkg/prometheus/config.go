package prometheus

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Config 指标配置
type Config struct {
	// 命名空间
	Namespace string `mapstructure:"namespace" json:"namespace"`

	// 子系统（可选）
	Subsystem string `mapstructure:"subsystem" json:"subsystem"`

	// 独立暴露指标的 HTTP 服务器，客户端默认关闭
	HTTPServer HTTPServerConfig `mapstructure:"http_server" json:"http_server"`

	// 是否注册 Go 运行时采集器
	EnableGoCollector bool `mapstructure:"enable_go_collector" json:"enable_go_collector"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Enabled bool          `mapstructure:"enabled" json:"enabled"`
	Addr    string        `mapstructure:"addr" json:"addr"`
	Path    string        `mapstructure:"path" json:"path"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "dicedeck",
		HTTPServer: HTTPServerConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
			Path:    "/metrics",
			Timeout: 10 * time.Second,
		},
	}
}

// Validate 验证配置并补全缺省项
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return errors.Wrap(ErrInvalidConfig, "namespace is required")
	}
	if !c.HTTPServer.Enabled {
		return nil
	}
	if c.HTTPServer.Addr == "" {
		return errors.Wrap(ErrInvalidConfig, "http_server.addr is required")
	}
	if c.HTTPServer.Path == "" {
		c.HTTPServer.Path = "/metrics"
	}
	if c.HTTPServer.Timeout <= 0 {
		c.HTTPServer.Timeout = 10 * time.Second
	}
	return nil
}
