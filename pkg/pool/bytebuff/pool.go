package bytebuff

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// 网关载荷分级: 256B, 4KB, 64KB
// 单次十连抽的响应约 1KB，收藏快照随图鉴规模增长
const maxPooledCap = 1 << 18

var tiers = [...]int{1 << 8, 1 << 12, 1 << 16}

// Stats 池统计
type Stats struct {
	Gets   uint64
	Puts   uint64
	Misses uint64
	Drops  uint64
}

// Pool 是按容量分级的 bytes.Buffer 池
type Pool struct {
	pools [len(tiers)]sync.Pool

	gets   atomic.Uint64
	puts   atomic.Uint64
	misses atomic.Uint64
	drops  atomic.Uint64
}

var defaultPool = NewPool()

// NewPool 创建分级池
func NewPool() *Pool {
	p := &Pool{}
	for i := range p.pools {
		p.pools[i].New = func() any { return new(bytes.Buffer) }
	}
	return p
}

// Get 取出一个容量不小于 sizeHint 的 Buffer
func (p *Pool) Get(sizeHint int) *bytes.Buffer {
	p.gets.Add(1)

	buf := p.pools[tierFor(sizeHint)].Get().(*bytes.Buffer)
	if buf.Cap() < sizeHint {
		p.misses.Add(1)
		buf.Grow(sizeHint)
	}
	return buf
}

// Put 归还 Buffer，过大的交给 GC
func (p *Pool) Put(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	if buf.Cap() > maxPooledCap {
		p.drops.Add(1)
		return
	}
	p.puts.Add(1)
	buf.Reset()
	p.pools[tierFor(buf.Cap())].Put(buf)
}

// Stats 返回统计快照
func (p *Pool) Stats() Stats {
	return Stats{
		Gets:   p.gets.Load(),
		Puts:   p.puts.Load(),
		Misses: p.misses.Load(),
		Drops:  p.drops.Load(),
	}
}

func tierFor(n int) int {
	for i, size := range tiers {
		if n <= size {
			return i
		}
	}
	return len(tiers) - 1
}

// Get 从默认池取 Buffer
func Get(sizeHint int) *bytes.Buffer { return defaultPool.Get(sizeHint) }

// Put 归还到默认池
func Put(buf *bytes.Buffer) { defaultPool.Put(buf) }

// DefaultStats 默认池统计
func DefaultStats() Stats { return defaultPool.Stats() }
