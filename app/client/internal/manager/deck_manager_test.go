package manager

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOwners map[string]model.OwnedDiceState

func (f fakeOwners) Get(id string) (model.OwnedDiceState, bool) {
	st, ok := f[id]
	return st, ok
}

func unlockedOwners(ids ...string) fakeOwners {
	f := fakeOwners{}
	for i, id := range ids {
		f[id] = model.OwnedDiceState{Quantity: 1, ClassLevel: int32(i + 1)}
	}
	return f
}

func assign(t *testing.T, d *DeckManager, slot int, id string) {
	t.Helper()
	require.NoError(t, d.Select(slot))
	require.NoError(t, d.Assign(id))
}

func assertNoDuplicates(t *testing.T, slots model.DeckSlots) {
	t.Helper()
	seen := map[string]bool{}
	for _, id := range slots {
		if id == "" {
			continue
		}
		assert.False(t, seen[id], "duplicate %s in %v", id, slots)
		seen[id] = true
	}
}

func TestSelectToggle(t *testing.T) {
	d := NewDeckManager(logger.NewNoop(), fakeOwners{})

	_, armed := d.Armed()
	assert.False(t, armed)

	require.NoError(t, d.Select(2))
	slot, armed := d.Armed()
	assert.True(t, armed)
	assert.Equal(t, 2, slot)

	require.NoError(t, d.Select(4))
	slot, _ = d.Armed()
	assert.Equal(t, 4, slot)

	require.NoError(t, d.Select(4))
	_, armed = d.Armed()
	assert.False(t, armed)

	assert.True(t, errors.Is(d.Select(5), ErrInvalidSlot))
	assert.True(t, errors.Is(d.Select(-1), ErrInvalidSlot))
}

func TestAssignRequiresArmedSlot(t *testing.T) {
	d := NewDeckManager(logger.NewNoop(), unlockedOwners("fire"))
	assert.True(t, errors.Is(d.Assign("fire"), ErrInvalidSlot))
	assert.Equal(t, model.DeckSlots{}, d.Slots())
}

func TestAssignRejectsUnowned(t *testing.T) {
	owners := unlockedOwners("fire")
	owners["ice"] = model.OwnedDiceState{Quantity: 3, ClassLevel: 0}
	d := NewDeckManager(logger.NewNoop(), owners)

	require.NoError(t, d.Select(0))
	assert.True(t, errors.Is(d.Assign("ice"), ErrNotOwned))
	assert.True(t, errors.Is(d.Assign("ghost"), ErrNotOwned))

	slot, armed := d.Armed()
	assert.True(t, armed, "arm kept after a rejected assignment")
	assert.Equal(t, 0, slot)

	require.NoError(t, d.Assign("fire"))
	_, armed = d.Armed()
	assert.False(t, armed)
}

func TestAssignReplace(t *testing.T) {
	d := NewDeckManager(logger.NewNoop(), unlockedOwners("a", "b", "c"))

	assign(t, d, 1, "a")
	assign(t, d, 1, "b")

	assert.Equal(t, model.DeckSlots{"", "b", "", "", ""}, d.Slots())
}

func TestAssignSwap(t *testing.T) {
	d := NewDeckManager(logger.NewNoop(), unlockedOwners("a", "b", "c", "d", "e"))
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		assign(t, d, i, id)
	}

	// slot 3 armed, "a" sits in slot 0
	assign(t, d, 3, "a")

	slots := d.Slots()
	assert.Equal(t, model.DeckSlots{"d", "b", "c", "a", "e"}, slots)
	assertNoDuplicates(t, slots)
	assert.Equal(t, 5, slots.Filled())
}

func TestAssignSwapIntoEmptySlot(t *testing.T) {
	d := NewDeckManager(logger.NewNoop(), unlockedOwners("a"))
	assign(t, d, 0, "a")
	assign(t, d, 4, "a")

	assert.Equal(t, model.DeckSlots{"", "", "", "", "a"}, d.Slots())
}

func TestAssignSameSlotIsNoop(t *testing.T) {
	d := NewDeckManager(logger.NewNoop(), unlockedOwners("a"))
	assign(t, d, 2, "a")

	changes := 0
	d.OnDeckChanged(func(model.DeckSlots) { changes++ })

	assign(t, d, 2, "a")
	assert.Equal(t, 0, changes)
	assert.Equal(t, model.DeckSlots{"", "", "a", "", ""}, d.Slots())
	_, armed := d.Armed()
	assert.False(t, armed)
}

func TestOnDeckChanged(t *testing.T) {
	d := NewDeckManager(logger.NewNoop(), unlockedOwners("a", "b"))

	var got []model.DeckSlots
	d.OnDeckChanged(func(s model.DeckSlots) { got = append(got, s) })

	assign(t, d, 0, "a")
	assign(t, d, 1, "b")
	require.Len(t, got, 2)
	assert.Equal(t, model.DeckSlots{"a", "b", "", "", ""}, got[1])
}

func TestAverageLevel(t *testing.T) {
	owners := fakeOwners{
		"a": {ClassLevel: 5},
		"b": {ClassLevel: 3},
	}
	d := NewDeckManager(logger.NewNoop(), owners)
	assert.Equal(t, 1.0, d.AverageLevel())

	assign(t, d, 0, "a")
	assign(t, d, 1, "b")
	assert.InDelta(t, (5+3+1+1+1)/5.0, d.AverageLevel(), 1e-9)

	delete(owners, "b")
	assert.InDelta(t, (5+1+1+1+1)/5.0, d.AverageLevel(), 1e-9)
}

func TestRestore(t *testing.T) {
	owners := unlockedOwners("a", "b")
	owners["locked"] = model.OwnedDiceState{Quantity: 2}
	d := NewDeckManager(logger.NewNoop(), owners)
	require.NoError(t, d.Select(1))

	dropped := d.Restore(model.DeckSlots{"a", "locked", "a", "b", "ghost"})
	assert.ElementsMatch(t, []string{"locked", "a", "ghost"}, dropped)
	assert.Equal(t, model.DeckSlots{"a", "", "", "b", ""}, d.Slots())

	_, armed := d.Armed()
	assert.False(t, armed)
}

func TestRevalidateWithCollection(t *testing.T) {
	coll := NewCollectionManager(logger.NewNoop())
	require.NoError(t, coll.ReplaceAll(sampleSnapshot()))

	d := NewDeckManager(logger.NewNoop(), coll)
	coll.OnChanged(func(uint64) { d.Revalidate() })

	assign(t, d, 0, "fire")
	assign(t, d, 1, "wind")

	var saved []model.DeckSlots
	d.OnDeckChanged(func(s model.DeckSlots) { saved = append(saved, s) })

	snap := sampleSnapshot()
	snap[3].Owned = nil
	require.NoError(t, coll.ReplaceAll(snap))

	assert.Equal(t, model.DeckSlots{"fire", "", "", "", ""}, d.Slots())
	require.Len(t, saved, 1)

	assert.Empty(t, d.Revalidate())
	assert.Len(t, saved, 1)
}
