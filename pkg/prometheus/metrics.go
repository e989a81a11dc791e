package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 调用方只依赖本包，不直接引入 client_golang
type (
	CounterVec   = prometheus.CounterVec
	GaugeVec     = prometheus.GaugeVec
	HistogramVec = prometheus.HistogramVec
	CounterFunc  = prometheus.CounterFunc
)

// NewCounter 创建并注册 Counter
func (c *Client) NewCounter(name, help string, labels []string) (*CounterVec, error) {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.register(name, v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewGauge 创建并注册 Gauge
func (c *Client) NewGauge(name, help string, labels []string) (*GaugeVec, error) {
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	if err := c.register(name, v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewHistogram 创建并注册 Histogram，buckets 为空时使用默认分桶
func (c *Client) NewHistogram(name, help string, labels []string, buckets []float64) (*HistogramVec, error) {
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	if err := c.register(name, v); err != nil {
		return nil, err
	}
	return v, nil
}

// NewCounterFunc 注册一个采集时回调取值的 Counter，fn 必须单调不减
func (c *Client) NewCounterFunc(name, help string, fn func() float64) (CounterFunc, error) {
	v := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      name,
		Help:      help,
	}, fn)
	if err := c.register(name, v); err != nil {
		return nil, err
	}
	return v, nil
}

// MustNewCounter 创建 Counter，失败则 panic
func (c *Client) MustNewCounter(name, help string, labels []string) *CounterVec {
	v, err := c.NewCounter(name, help, labels)
	if err != nil {
		panic(err)
	}
	return v
}

// MustNewGauge 创建 Gauge，失败则 panic
func (c *Client) MustNewGauge(name, help string, labels []string) *GaugeVec {
	v, err := c.NewGauge(name, help, labels)
	if err != nil {
		panic(err)
	}
	return v
}

// MustNewHistogram 创建 Histogram，失败则 panic
func (c *Client) MustNewHistogram(name, help string, labels []string, buckets []float64) *HistogramVec {
	v, err := c.NewHistogram(name, help, labels, buckets)
	if err != nil {
		panic(err)
	}
	return v
}
