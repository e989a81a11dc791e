// Package gateway 与服务端同步收藏、抽卡、升级和卡组的适配层
package gateway

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/metrics"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
)

// 操作名，用于日志和指标
const (
	OpFetchCollection = "fetch_collection"
	OpSummon          = "summon"
	OpUpgrade         = "upgrade"
	OpFetchResources  = "fetch_resources"
	OpFetchDeck       = "fetch_deck"
	OpSaveDeck        = "save_deck"
)

var (
	// ErrNetworkFailure 传输失败或超时，操作放弃且不改变状态
	ErrNetworkFailure = errors.New("gateway: network failure")

	// ErrRejectedByServer 服务端拒绝，详情原样展示
	ErrRejectedByServer = errors.New("gateway: rejected by server")

	// ErrMalformedResponse 响应无法解析或与请求不符
	ErrMalformedResponse = errors.New("gateway: malformed response")

	// ErrInvalidSummonCount 抽卡次数只能是 1 或 11
	ErrInvalidSummonCount = errors.New("gateway: summon count must be 1 or 11")
)

// SyncGateway 服务端同步接口
type SyncGateway interface {
	// FetchCollection 拉取完整收藏快照
	FetchCollection(ctx context.Context, playerID string) ([]*model.Dice, error)
	// Summon 抽卡，返回数量与 count 一致
	Summon(ctx context.Context, playerID string, count int) ([]model.SummonResult, error)
	// Upgrade 升级，客户端随后应重新拉取收藏
	Upgrade(ctx context.Context, playerID, diceID string) (*model.OwnedDiceState, error)
	// FetchResources 拉取货币
	FetchResources(ctx context.Context, playerID string) (*model.Resources, error)
	// FetchDeck 拉取已保存的卡组
	FetchDeck(ctx context.Context, playerID string) (model.DeckSlots, error)
	// SaveDeck 保存卡组
	SaveDeck(ctx context.Context, playerID string, slots model.DeckSlots) error
}

// RejectedError 服务端拒绝详情
type RejectedError struct {
	Status int    // HTTP 状态码，本地网关为 0
	Code   int    // 业务错误码
	Detail string // 服务端消息
}

func (e *RejectedError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("rejected by server: code=%d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("rejected by server: status=%d code=%d: %s", e.Status, e.Code, e.Detail)
}

// Is 兼容标准库 errors.Is
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejectedByServer
}

// Rejected 构造被拒绝的错误
func Rejected(status, code int, detail string) error {
	return errors.Mark(&RejectedError{Status: status, Code: code, Detail: detail}, ErrRejectedByServer)
}

// networkFailure 标记为网络错误，保留原始原因
func networkFailure(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrNetworkFailure)
}

// Detail 取出适合展示给玩家的消息
func Detail(err error) string {
	var rej *RejectedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rej):
		return rej.Detail
	case errors.Is(err, ErrNetworkFailure):
		return "network unavailable, please try again"
	default:
		return err.Error()
	}
}

// ResultOf 把错误映射为指标结果标签
func ResultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrNetworkFailure):
		return metrics.ResultNetwork
	case errors.Is(err, ErrRejectedByServer):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
