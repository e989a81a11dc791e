package prometheus

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Client 指标客户端，持有独立的 Registry
type Client struct {
	config   *Config
	registry *prometheus.Registry
	log      logger.Logger

	mu      sync.Mutex
	metrics map[string]prometheus.Collector

	httpServer *http.Server
	closed     atomic.Bool
}

// New 创建指标客户端
func New(cfg *Config, log logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoop()
	}

	c := &Client{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		log:      log.Named("metrics"),
		metrics:  make(map[string]prometheus.Collector),
	}

	if cfg.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}

	if cfg.HTTPServer.Enabled {
		c.startHTTPServer()
	}
	return c, nil
}

// Registry 底层 Registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics 处理器
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *Client) startHTTPServer() {
	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())

	c.httpServer = &http.Server{
		Addr:         c.config.HTTPServer.Addr,
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	go func() {
		c.log.Info("metrics endpoint listening",
			zap.String("addr", c.config.HTTPServer.Addr),
			zap.String("path", c.config.HTTPServer.Path))
		if err := c.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error("metrics endpoint stopped", zap.Error(err))
		}
	}()
}

// register 按名称去重注册
func (c *Client) register(name string, col prometheus.Collector) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.metrics[name]; ok {
		return errors.Wrapf(ErrMetricExists, "metric %s", name)
	}
	if err := c.registry.Register(col); err != nil {
		return errors.Wrapf(err, "register %s", name)
	}
	c.metrics[name] = col
	return nil
}

// Close 关闭客户端和 HTTP 服务器
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	if c.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.httpServer.Shutdown(ctx)
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
