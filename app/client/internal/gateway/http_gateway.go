package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/metrics"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/lk2023060901/dicedeck/pkg/config"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/lk2023060901/dicedeck/pkg/pool/bytebuff"
	"github.com/lk2023060901/dicedeck/pkg/serializer"
	"golang.org/x/time/rate"
)

// maxErrorBody 非 2xx 响应最多读取的字节数
const maxErrorBody = 4 << 10

// HTTPConfig HTTP 网关配置
type HTTPConfig struct {
	// 服务端地址，如 http://127.0.0.1:8080/api
	BaseURL string `mapstructure:"base_url" json:"base_url" validate:"required,url"`
	// 编码: json 或 msgpack
	Codec string `mapstructure:"codec" json:"codec" validate:"omitempty,oneof=json msgpack"`
	// 单次请求超时，0 取默认值，负数不设超时
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// 客户端限流，每秒请求数，0 取默认值，负数不限流
	RateLimit float64 `mapstructure:"rate_limit" json:"rate_limit"`
	Burst     int     `mapstructure:"burst" json:"burst"`
}

// DefaultHTTPConfig 默认配置
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Codec:     "json",
		Timeout:   5 * time.Second,
		RateLimit: 10,
		Burst:     5,
	}
}

// envelope 服务端统一响应结构 {code, message, data}
type envelope[T any] struct {
	Code    int    `json:"code" codec:"code"`
	Message string `json:"message" codec:"message"`
	Data    T      `json:"data" codec:"data"`
}

type summonRequest struct {
	Count int `json:"count" codec:"count"`
}

type saveDeckRequest struct {
	Slots model.DeckSlots `json:"slots" codec:"slots"`
}

// HTTPGateway 基于 REST 的网关实现
type HTTPGateway struct {
	config  *HTTPConfig
	base    *url.URL
	client  *http.Client
	codec   serializer.Serializer
	limiter *rate.Limiter
	logger  logger.Logger
	metrics *metrics.ClientMetrics
}

// HTTPOption HTTP 网关选项
type HTTPOption func(*HTTPGateway)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(g *HTTPGateway) {
		if c != nil {
			g.client = c
		}
	}
}

// NewHTTPGateway 创建 HTTP 网关
func NewHTTPGateway(cfg *HTTPConfig, l logger.Logger, m *metrics.ClientMetrics, opts ...HTTPOption) (*HTTPGateway, error) {
	newCfg, err := config.MergeConfig(DefaultHTTPConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge http gateway config")
	}
	if err := config.NewValidator().Validate(newCfg); err != nil {
		return nil, errors.Wrap(err, "invalid http gateway config")
	}

	base, err := url.Parse(strings.TrimRight(newCfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "parse base url %q", newCfg.BaseURL)
	}
	codec, err := serializer.ByName(newCfg.Codec)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if newCfg.RateLimit > 0 {
		limit = rate.Limit(newCfg.RateLimit)
	}
	burst := newCfg.Burst
	if burst < 1 {
		burst = 1
	}

	g := &HTTPGateway{
		config:  newCfg,
		base:    base,
		client:  &http.Client{},
		codec:   codec,
		limiter: rate.NewLimiter(limit, burst),
		logger:  l.Named("gateway.http"),
		metrics: m,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *HTTPGateway) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return g.base.String() + "/" + strings.Join(escaped, "/")
}

// call 发送请求并解出 data，成功响应缺少 data 视为格式错误
func call[T any](ctx context.Context, g *HTTPGateway, op, method, target string, body any) (T, error) {
	data, err := exchange[T](ctx, g, op, method, target, body, true)
	if err != nil {
		var zero T
		return zero, err
	}
	return *data, nil
}

// exchange 发送请求并解码响应；required 为 false 时允许 data 为空；body 为 nil 时不带请求体
func exchange[T any](ctx context.Context, g *HTTPGateway, op, method, target string, body any, required bool) (*T, error) {
	start := time.Now()

	var env envelope[*T]
	err := g.roundTrip(ctx, method, target, body, func(status int, raw []byte) error {
		if derr := g.codec.Deserialize(raw, &env); derr != nil {
			return errors.Mark(errors.Wrapf(ErrMalformedResponse, "decode: %v", derr), ErrNetworkFailure)
		}
		if env.Code != 0 {
			return Rejected(status, env.Code, env.Message)
		}
		if required && env.Data == nil {
			return errors.Mark(errors.Wrapf(ErrMalformedResponse, "%s: data missing", op), ErrNetworkFailure)
		}
		return nil
	})

	g.metrics.ObserveGateway(op, ResultOf(err), time.Since(start))
	if err != nil {
		g.logger.WarnContext(ctx, "gateway call failed", "op", op, "method", method, "url", target, "error", err)
		return nil, err
	}
	g.logger.DebugContext(ctx, "gateway call ok", "op", op, "elapsed", time.Since(start))
	return env.Data, nil
}

// roundTrip 处理限流、超时和编码，非 2xx 直接转为拒绝错误
// decode 在响应体归还到池之前调用，不得持有 raw
func (g *HTTPGateway) roundTrip(ctx context.Context, method, target string, body any, decode func(status int, raw []byte) error) error {
	// 1. 限流
	if err := g.limiter.Wait(ctx); err != nil {
		return networkFailure(err, "rate limit wait")
	}

	// 2. 超时，负数表示不设
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	// 3. 构造请求
	var reader io.Reader
	if body != nil {
		payload, err := g.codec.Serialize(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", g.codec.ContentType())
	if body != nil {
		req.Header.Set("Content-Type", g.codec.ContentType())
	}

	// 4. 发送
	resp, err := g.client.Do(req)
	if err != nil {
		return networkFailure(err, "%s %s", method, target)
	}
	defer resp.Body.Close()

	// 5. 读取响应体，非 2xx 视为拒绝并尽量取出服务端消息
	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	limit := int64(0)
	if !ok {
		limit = maxErrorBody
	}
	payload, err := bytebuff.ReadBody(resp.Body, limit)
	if err != nil {
		if !ok {
			return Rejected(resp.StatusCode, 0, http.StatusText(resp.StatusCode))
		}
		return networkFailure(err, "read response")
	}
	defer payload.Release()

	if !ok {
		return g.rejection(resp.StatusCode, payload.Bytes())
	}
	return decode(resp.StatusCode, payload.Bytes())
}

func (g *HTTPGateway) rejection(status int, raw []byte) error {
	var env envelope[struct{}]
	if len(raw) > 0 && g.codec.Deserialize(raw, &env) == nil && env.Message != "" {
		return Rejected(status, env.Code, env.Message)
	}
	detail := strings.TrimSpace(string(raw))
	if detail == "" {
		detail = http.StatusText(status)
	}
	return Rejected(status, 0, detail)
}

func (g *HTTPGateway) FetchCollection(ctx context.Context, playerID string) ([]*model.Dice, error) {
	return call[[]*model.Dice](ctx, g, OpFetchCollection, http.MethodGet,
		g.endpoint("players", playerID, "dice"), nil)
}

func (g *HTTPGateway) Summon(ctx context.Context, playerID string, count int) ([]model.SummonResult, error) {
	if !model.ValidSummonCount(count) {
		return nil, errors.Wrapf(ErrInvalidSummonCount, "got %d", count)
	}
	results, err := call[[]model.SummonResult](ctx, g, OpSummon, http.MethodPost,
		g.endpoint("players", playerID, "summon"), summonRequest{Count: count})
	if err != nil {
		return nil, err
	}
	if len(results) != count {
		return nil, errors.Mark(
			errors.Wrapf(ErrMalformedResponse, "summon returned %d results, want %d", len(results), count),
			ErrNetworkFailure)
	}
	return results, nil
}

func (g *HTTPGateway) Upgrade(ctx context.Context, playerID, diceID string) (*model.OwnedDiceState, error) {
	st, err := call[model.OwnedDiceState](ctx, g, OpUpgrade, http.MethodPost,
		g.endpoint("players", playerID, "dice", diceID, "upgrade"), struct{}{})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (g *HTTPGateway) FetchResources(ctx context.Context, playerID string) (*model.Resources, error) {
	res, err := call[model.Resources](ctx, g, OpFetchResources, http.MethodGet,
		g.endpoint("players", playerID, "resources"), nil)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (g *HTTPGateway) FetchDeck(ctx context.Context, playerID string) (model.DeckSlots, error) {
	return call[model.DeckSlots](ctx, g, OpFetchDeck, http.MethodGet,
		g.endpoint("players", playerID, "deck"), nil)
}

func (g *HTTPGateway) SaveDeck(ctx context.Context, playerID string, slots model.DeckSlots) error {
	_, err := exchange[struct{}](ctx, g, OpSaveDeck, http.MethodPut,
		g.endpoint("players", playerID, "deck"), saveDeckRequest{Slots: slots}, false)
	return err
}
