package bytebuff

import (
	"io"

	"github.com/valyala/bytebufferpool"
)

// 响应体池按实际读到的大小自校准，和编码用的分级池分开
var bodyPool bytebufferpool.Pool

// Body 池化的响应体，用完必须 Release，Release 后 Bytes 不再有效
type Body struct {
	bb *bytebufferpool.ByteBuffer
}

// ReadBody 读取 r 的全部内容，limit>0 时最多读 limit 字节
func ReadBody(r io.Reader, limit int64) (*Body, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit)
	}
	bb := bodyPool.Get()
	if _, err := bb.ReadFrom(r); err != nil {
		bodyPool.Put(bb)
		return nil, err
	}
	return &Body{bb: bb}, nil
}

// Bytes 读到的内容
func (b *Body) Bytes() []byte {
	if b == nil || b.bb == nil {
		return nil
	}
	return b.bb.B
}

// Len 内容长度
func (b *Body) Len() int { return len(b.Bytes()) }

// Release 归还底层 buffer，可重复调用
func (b *Body) Release() {
	if b == nil || b.bb == nil {
		return
	}
	bodyPool.Put(b.bb)
	b.bb = nil
}
