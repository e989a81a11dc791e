package manager

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func costs() map[int32]model.UpgradeCost {
	out := make(map[int32]model.UpgradeCost, model.MaxLevel)
	for l := int32(1); l <= model.MaxLevel; l++ {
		out[l] = model.UpgradeCost{CardsRequired: l + 2, GoldRequired: int64(l) * 100}
	}
	return out
}

func dice(id string, rarity model.Rarity, owned *model.OwnedDiceState) *model.Dice {
	return &model.Dice{
		Definition: model.DiceDefinition{
			ID:           id,
			Name:         "Dice " + id,
			Rarity:       rarity,
			Attack:       &model.Stat{Base: 10, PerLevel: 2, PerPowerTier: 4},
			AttackSpeed:  &model.Stat{Base: 1.2, PerLevel: -0.02, DisplayFormat: "%.2fs"},
			Specials:     []model.SpecialStat{{Key: "crit", Stat: model.Stat{Base: 5, PerLevel: 0.5, DisplayFormat: "%.1f%%"}}},
			UpgradeCosts: costs(),
		},
		Owned: owned,
	}
}

func sampleSnapshot() []*model.Dice {
	return []*model.Dice{
		dice("fire", model.RarityCommon, &model.OwnedDiceState{Quantity: 5, ClassLevel: 2}),
		dice("ice", model.RarityRare, &model.OwnedDiceState{Quantity: 3, ClassLevel: 0}),
		dice("storm", model.RarityLegend, nil),
		dice("wind", model.RarityHero, &model.OwnedDiceState{Quantity: 0, ClassLevel: 7}),
	}
}

func newCollection(t *testing.T) *CollectionManager {
	t.Helper()
	m := NewCollectionManager(logger.NewNoop())
	require.NoError(t, m.ReplaceAll(sampleSnapshot()))
	return m
}

func TestReplaceAllAndGet(t *testing.T) {
	m := NewCollectionManager(logger.NewNoop())
	assert.False(t, m.Loaded())

	require.NoError(t, m.ReplaceAll(sampleSnapshot()))
	assert.True(t, m.Loaded())
	assert.Equal(t, 4, m.Len())
	assert.Equal(t, uint64(1), m.Version())

	st, ok := m.Get("fire")
	require.True(t, ok)
	assert.Equal(t, model.OwnedDiceState{Quantity: 5, ClassLevel: 2}, st)

	_, ok = m.Get("storm")
	assert.False(t, ok)

	def, ok := m.Definition("storm")
	require.True(t, ok)
	assert.Equal(t, model.RarityLegend, def.Rarity)
}

func TestReplaceAllDeepCopiesInput(t *testing.T) {
	snap := sampleSnapshot()
	m := NewCollectionManager(logger.NewNoop())
	require.NoError(t, m.ReplaceAll(snap))

	snap[0].Owned.Quantity = 99
	snap[0].Definition.Attack.Base = 0

	st, _ := m.Get("fire")
	assert.Equal(t, int32(5), st.Quantity)
	def, _ := m.Definition("fire")
	assert.Equal(t, 10.0, def.Attack.Base)
}

func TestReplaceAllInvalidKeepsPreviousSnapshot(t *testing.T) {
	m := newCollection(t)
	before := m.Views(SortRarity, 1000)

	cases := map[string][]*model.Dice{
		"nil entry":      {nil},
		"empty id":       {dice("", model.RarityCommon, nil)},
		"duplicate":      {dice("a", model.RarityCommon, nil), dice("a", model.RarityRare, nil)},
		"bad rarity":     {dice("a", model.Rarity("mythic"), nil)},
		"level too high": {dice("a", model.RarityCommon, &model.OwnedDiceState{ClassLevel: 21})},
		"negative qty":   {dice("a", model.RarityCommon, &model.OwnedDiceState{Quantity: -1, ClassLevel: 1})},
	}
	for name, snap := range cases {
		err := m.ReplaceAll(snap)
		assert.True(t, errors.Is(err, ErrInvalidSnapshot), name)
	}

	assert.Equal(t, uint64(1), m.Version())
	assert.Equal(t, before, m.Views(SortRarity, 1000))
}

func TestReplaceAllIdempotent(t *testing.T) {
	m := NewCollectionManager(logger.NewNoop())
	require.NoError(t, m.ReplaceAll(sampleSnapshot()))
	first := m.Views(SortRarity, 500)
	firstStats := m.Stats()

	require.NoError(t, m.ReplaceAll(sampleSnapshot()))
	assert.Equal(t, first, m.Views(SortRarity, 500))
	assert.Equal(t, firstStats, m.Stats())
}

func TestClassify(t *testing.T) {
	m := newCollection(t)

	assert.Equal(t, model.ClassKnown, m.Classify("fire"))
	assert.Equal(t, model.ClassNew, m.Classify("ice"))
	assert.Equal(t, model.ClassNew, m.Classify("storm"))
	assert.Equal(t, model.ClassNew, m.Classify("missing"))

	snap := sampleSnapshot()
	snap[1].Owned = &model.OwnedDiceState{Quantity: 0, ClassLevel: 1}
	require.NoError(t, m.ReplaceAll(snap))
	assert.Equal(t, model.ClassKnown, m.Classify("ice"))
}

func TestCommit(t *testing.T) {
	m := newCollection(t)

	var versions []uint64
	m.OnChanged(func(v uint64) { versions = append(versions, v) })

	applied := m.Commit([]model.SummonResult{
		{DiceID: "fire"},
		{DiceID: "fire"},
		{DiceID: "storm"},
		{DiceID: "unknown"},
	})
	assert.Equal(t, 3, applied)

	st, _ := m.Get("fire")
	assert.Equal(t, model.OwnedDiceState{Quantity: 7, ClassLevel: 2}, st)

	st, ok := m.Get("storm")
	require.True(t, ok)
	assert.Equal(t, model.OwnedDiceState{Quantity: 1, ClassLevel: 0}, st)
	assert.Equal(t, model.ClassNew, m.Classify("storm"))

	assert.Equal(t, []uint64{2}, versions)

	assert.Equal(t, 0, m.Commit([]model.SummonResult{{DiceID: "unknown"}}))
	assert.Equal(t, []uint64{2}, versions)
}

func TestViewsSorting(t *testing.T) {
	m := newCollection(t)

	ids := func(views []DiceView) []string {
		out := make([]string, len(views))
		for i, v := range views {
			out[i] = v.ID
		}
		return out
	}

	assert.Equal(t, []string{"storm", "wind", "ice", "fire"}, ids(m.Views(SortRarity, 0)))
	assert.Equal(t, []string{"wind", "fire", "storm", "ice"}, ids(m.Views(SortLevel, 0)))
	assert.Equal(t, []string{"fire", "ice", "storm", "wind"}, ids(m.Views(SortName, 0)))
}

func TestViewDerivedFields(t *testing.T) {
	m := newCollection(t)

	var fire DiceView
	for _, v := range m.Views(SortName, 500) {
		if v.ID == "fire" {
			fire = v
		}
	}

	assert.Equal(t, 12.0, fire.Attack.Value)
	assert.Equal(t, 1.18, fire.AttackSpeed.Value)
	assert.Equal(t, 28.0, fire.PoweredAttack.Value)
	require.Len(t, fire.Specials, 1)
	assert.Equal(t, "5.5%", fire.Specials[0].Text)
	assert.Equal(t, model.UpgradeCost{CardsRequired: 5, GoldRequired: 300}, fire.Next.Cost)
	assert.True(t, fire.Next.Eligible)
	assert.Equal(t, model.ClassKnown, fire.Class)
}

func TestStats(t *testing.T) {
	m := newCollection(t)
	st := m.Stats()

	assert.Equal(t, int32(4), st.TotalTypes)
	assert.Equal(t, int32(2), st.UnlockedTypes)
	assert.Equal(t, int32(8), st.TotalCards)
	assert.Equal(t, int32(1), st.RarityOwned[model.RarityHero])
	assert.Equal(t, int32(0), st.RarityOwned[model.RarityLegend])
	assert.Equal(t, int32(1), st.RarityTotal[model.RarityLegend])
}
