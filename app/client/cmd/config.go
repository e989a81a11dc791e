package main

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/gateway"
	"github.com/lk2023060901/dicedeck/app/client/internal/service"
	"github.com/lk2023060901/dicedeck/pkg/app"
	"github.com/lk2023060901/dicedeck/pkg/config"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/lk2023060901/dicedeck/pkg/prometheus"
)

// 网关模式
const (
	GatewayLocal = "local"
	GatewayHTTP  = "http"
)

// LocalConfig 本地网关配置
type LocalConfig struct {
	// 目录文件，相对路径以配置文件所在目录为基准
	Catalog string `mapstructure:"catalog" validate:"required"`
	// 抽卡随机种子，相同种子得到相同序列
	Seed uint64 `mapstructure:"seed"`
}

// GatewayConfig 网关配置
type GatewayConfig struct {
	Mode  string             `mapstructure:"mode" validate:"oneof=local http"`
	Local LocalConfig        `mapstructure:"local"`
	HTTP  gateway.HTTPConfig `mapstructure:"http"`
}

// Config 客户端完整配置
type Config struct {
	Log        logger.Config     `mapstructure:"log"`
	Session    service.Config    `mapstructure:"session"`
	Gateway    GatewayConfig     `mapstructure:"gateway"`
	Prometheus prometheus.Config `mapstructure:"prometheus"`
}

func defaultConfig() *Config {
	return &Config{
		Log:        *logger.DefaultConfig(),
		Session:    *service.DefaultConfig(),
		Prometheus: *prometheus.DefaultConfig(),
		Gateway: GatewayConfig{
			Mode:  GatewayLocal,
			Local: LocalConfig{Catalog: "catalog.yaml", Seed: 1},
			HTTP:  *gateway.DefaultHTTPConfig(),
		},
	}
}

// loadConfig 默认值 < 配置文件 < 环境变量 < 命令行
func loadConfig() (*Config, config.Manager, error) {
	cfg := defaultConfig()
	mgr, err := app.LoadConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	// http 模式下不要求本地目录，反之亦然
	if err := cfg.Session.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid session config")
	}
	v := config.NewValidator()
	if err := v.ValidateField(cfg.Gateway.Mode, "oneof=local http"); err != nil {
		return nil, nil, errors.Wrap(err, "invalid gateway mode")
	}
	if cfg.Gateway.Mode == GatewayLocal {
		if err := v.Validate(&cfg.Gateway.Local); err != nil {
			return nil, nil, errors.Wrap(err, "invalid local gateway config")
		}
		if !filepath.IsAbs(cfg.Gateway.Local.Catalog) {
			cfg.Gateway.Local.Catalog = filepath.Join(filepath.Dir(app.GetConfigPath()), cfg.Gateway.Local.Catalog)
		}
	}
	return cfg, mgr, nil
}

// levelSetter 支持运行时调整等级的 logger
type levelSetter interface {
	SetLevel(level logger.Level) error
	GetLevel() logger.Level
}

// watchConfig 配置文件变化时热更新日志等级和揭晓时间轴，其余配置需重启生效
func watchConfig(mgr config.Manager, s *service.Session, l logger.Logger, lv levelSetter) {
	mgr.Watch(func(path string) {
		if lv != nil && mgr.IsSet("log.level") {
			level := logger.Level(mgr.GetString("log.level"))
			if level != lv.GetLevel() {
				if err := lv.SetLevel(level); err != nil {
					l.Warn("log level not reloaded", "path", path, "error", err)
				} else {
					l.Info("log level reloaded", "level", level)
				}
			}
		}

		if mgr.IsSet("session.sequencer") {
			t := s.Timing()
			if err := mgr.UnmarshalKey("session.sequencer", &t); err != nil {
				l.Warn("sequencer timing not reloaded", "path", path, "error", err)
				return
			}
			if t != s.Timing() {
				s.SetTiming(t)
				l.Info("sequencer timing reloaded", "path", path)
			}
		}
	})
}
