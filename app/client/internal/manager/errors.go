package manager

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidSnapshot 收藏快照校验失败，旧快照保持不变
	ErrInvalidSnapshot = errors.New("collection: invalid snapshot")

	// ErrInvalidSlot 槽位越界或没有选中槽位
	ErrInvalidSlot = errors.New("deck: invalid slot")

	// ErrNotOwned 骰子未拥有或未解锁
	ErrNotOwned = errors.New("deck: dice not owned")
)
