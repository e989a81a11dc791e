//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/jonboulle/clockwork"
	"github.com/lk2023060901/dicedeck/app/client/internal/gateway"
	"github.com/lk2023060901/dicedeck/app/client/internal/manager"
	"github.com/lk2023060901/dicedeck/app/client/internal/metrics"
	"github.com/lk2023060901/dicedeck/app/client/internal/service"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/lk2023060901/dicedeck/pkg/notify"
	"github.com/lk2023060901/dicedeck/pkg/prometheus"
)

func InitClient(cfg *Config, l logger.Logger) (*Client, func(), error) {
	panic(wire.Build(
		// 1. 指标
		providePrometheus,
		metrics.New,

		// 2. 网关
		provideGateway,

		// 3. 管理层
		manager.NewCollectionManager,
		wire.Bind(new(manager.OwnershipReader), new(*manager.CollectionManager)),
		manager.NewDeckManager,

		// 4. 会话
		provideSessionConfig,
		provideNotifier,
		provideClock,
		service.NewSession,

		newClient,
	))
}

// providePrometheus 提供指标客户端，随应用关闭
func providePrometheus(cfg *Config, l logger.Logger) (*prometheus.Client, func(), error) {
	c, err := prometheus.New(&cfg.Prometheus, l)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

// provideGateway 按模式创建网关
func provideGateway(cfg *Config, l logger.Logger, m *metrics.ClientMetrics) (gateway.SyncGateway, error) {
	if cfg.Gateway.Mode == GatewayHTTP {
		g, err := gateway.NewHTTPGateway(&cfg.Gateway.HTTP, l, m)
		if err != nil {
			return nil, err
		}
		return g, nil
	}

	catalog, err := gateway.LoadCatalog(cfg.Gateway.Local.Catalog)
	if err != nil {
		return nil, err
	}
	g, err := gateway.NewLocalGateway(catalog, cfg.Gateway.Local.Seed, l, m)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// provideSessionConfig 提供会话配置
func provideSessionConfig(cfg *Config) *service.Config {
	return &cfg.Session
}

// provideNotifier 提示写入日志
func provideNotifier(l logger.Logger) (notify.Notifier, error) {
	n, err := notify.NewMulti(notify.NewLogNotifier(l))
	if err != nil {
		return nil, err
	}
	return n, nil
}

// provideClock 真实时钟
func provideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}
