package notify

import "github.com/cockroachdb/errors"

var (
	// ErrNoNotifiers 没有可用的通知器
	ErrNoNotifiers = errors.New("no notifiers configured")

	// ErrNilNotice 空提示
	ErrNilNotice = errors.New("nil notice")
)
