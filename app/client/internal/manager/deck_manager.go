package manager

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/lk2023060901/dicedeck/pkg/logger"
)

const noArm = -1

// OwnershipReader 卡组只读取持有状态，不持有副本
type OwnershipReader interface {
	Get(id string) (model.OwnedDiceState, bool)
}

// DeckManager 5 槽卡组
// 同一骰子最多出现在一个槽位：已在其他槽位时交换，否则替换
type DeckManager struct {
	logger logger.Logger
	owners OwnershipReader

	mu    sync.Mutex
	slots model.DeckSlots
	armed int

	hookMu sync.Mutex
	hooks  []func(model.DeckSlots)
}

// NewDeckManager 创建卡组管理器
func NewDeckManager(l logger.Logger, owners OwnershipReader) *DeckManager {
	return &DeckManager{
		logger: l.Named("manager.deck"),
		owners: owners,
		armed:  noArm,
	}
}

// OnDeckChanged 注册卡组变更回调，回调在释放锁后执行
func (d *DeckManager) OnDeckChanged(fn func(model.DeckSlots)) {
	if fn == nil {
		return
	}
	d.hookMu.Lock()
	d.hooks = append(d.hooks, fn)
	d.hookMu.Unlock()
}

func (d *DeckManager) fireChanged(slots model.DeckSlots) {
	d.hookMu.Lock()
	hooks := make([]func(model.DeckSlots), len(d.hooks))
	copy(hooks, d.hooks)
	d.hookMu.Unlock()

	for _, fn := range hooks {
		fn(slots)
	}
}

// Select 切换槽位的选中状态，再次选中同一槽位取消选中
func (d *DeckManager) Select(slot int) error {
	if slot < 0 || slot >= model.DeckSize {
		return errors.Wrapf(ErrInvalidSlot, "slot %d", slot)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.armed == slot {
		d.armed = noArm
	} else {
		d.armed = slot
	}
	return nil
}

// Armed 当前选中的槽位
func (d *DeckManager) Armed() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed, d.armed != noArm
}

func (d *DeckManager) unlocked(id string) bool {
	st, ok := d.owners.Get(id)
	return ok && st.Unlocked()
}

// Assign 把骰子放入选中的槽位
// 失败时保持选中状态，成功后清除
func (d *DeckManager) Assign(id string) error {
	d.mu.Lock()

	// 1. 本地校验，不发起网络请求
	if d.armed == noArm {
		d.mu.Unlock()
		return errors.Wrap(ErrInvalidSlot, "no slot selected")
	}
	if !d.unlocked(id) {
		d.mu.Unlock()
		return errors.Wrapf(ErrNotOwned, "dice %q", id)
	}

	// 2. 交换或替换
	target := d.armed
	d.armed = noArm
	from := d.slots.Index(id)
	if from == target {
		d.mu.Unlock()
		return nil
	}

	if from >= 0 {
		d.slots[from] = d.slots[target]
	}
	prev := d.slots[target]
	d.slots[target] = id
	slots := d.slots
	d.mu.Unlock()

	if from >= 0 {
		d.logger.Debug("deck slots swapped", "dice_id", id, "from", from, "to", target, "moved", prev)
	} else {
		d.logger.Debug("deck slot replaced", "dice_id", id, "slot", target, "dropped", prev)
	}
	d.fireChanged(slots)
	return nil
}

// Slots 卡组快照
func (d *DeckManager) Slots() model.DeckSlots {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slots
}

// AverageLevel 5 个槽位的平均等级，空槽和失效槽按 1 级计（仅用于展示）
func (d *DeckManager) AverageLevel() float64 {
	slots := d.Slots()

	var sum int32
	for _, id := range slots {
		level := int32(1)
		if id != "" {
			if st, ok := d.owners.Get(id); ok && st.ClassLevel > 1 {
				level = st.ClassLevel
			}
		}
		sum += level
	}
	return float64(sum) / model.DeckSize
}

// Restore 载入服务端保存的卡组，丢弃重复和未解锁的骰子
func (d *DeckManager) Restore(slots model.DeckSlots) []string {
	var (
		clean   model.DeckSlots
		dropped []string
		seen    = make(map[string]struct{}, model.DeckSize)
	)
	for i, id := range slots {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup || !d.unlocked(id) {
			dropped = append(dropped, id)
			continue
		}
		seen[id] = struct{}{}
		clean[i] = id
	}

	d.mu.Lock()
	d.slots = clean
	d.armed = noArm
	d.mu.Unlock()

	if len(dropped) > 0 {
		d.logger.Warn("restored deck had invalid slots", "dropped", dropped)
	}
	return dropped
}

// Revalidate 收藏变更后清除不再持有的骰子
func (d *DeckManager) Revalidate() []string {
	d.mu.Lock()
	var cleared []string
	for i, id := range d.slots {
		if id != "" && !d.unlocked(id) {
			cleared = append(cleared, id)
			d.slots[i] = ""
		}
	}
	slots := d.slots
	d.mu.Unlock()

	if len(cleared) > 0 {
		d.logger.Info("deck slots cleared after collection change", "cleared", cleared)
		d.fireChanged(slots)
	}
	return cleared
}
