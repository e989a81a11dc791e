package service

import "github.com/cockroachdb/errors"

var (
	// ErrSummonInProgress 已有未关闭的抽卡批次
	ErrSummonInProgress = errors.New("session: summon already in progress")

	// ErrNoActiveSummon 没有进行中的抽卡批次
	ErrNoActiveSummon = errors.New("session: no active summon")

	// ErrNotEligible 本地判断卡牌或金币不足
	ErrNotEligible = errors.New("session: upgrade not eligible")

	// ErrNotLoaded 收藏或货币尚未加载
	ErrNotLoaded = errors.New("session: state not loaded")
)
