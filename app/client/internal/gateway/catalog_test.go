package gateway

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadCatalog("testdata/catalog.yaml")
	require.NoError(t, err)
	return c
}

func TestLoadCatalog(t *testing.T) {
	c := loadTestCatalog(t)

	require.Len(t, c.Dice, 3)
	fire := c.Dice[0]
	assert.Equal(t, model.RarityCommon, fire.Rarity)
	assert.Equal(t, 3.0, fire.Attack.PerLevel)
	assert.Equal(t, "%.2fs", fire.AttackSpeed.DisplayFormat)
	require.Len(t, fire.Specials, 1)
	assert.Equal(t, "burn", fire.Specials[0].Key)
	assert.Equal(t, 5.0, fire.Specials[0].Base)

	// 稀有度曲线展开为按目标等级的消耗表
	assert.Equal(t, model.UpgradeCost{CardsRequired: 5, GoldRequired: 300}, fire.UpgradeCosts[3])
	assert.Len(t, fire.UpgradeCosts, 4)

	// 自带消耗表的骰子不套用曲线
	assert.Len(t, c.Dice[2].UpgradeCosts, 2)

	assert.Equal(t, int64(1000), c.Summon.GemCost[11])
	assert.Equal(t, int64(500), c.Starting.Resources.Gold)
	assert.Equal(t, []string{"fire"}, c.Starting.Deck)
}

func TestParseCatalogRejects(t *testing.T) {
	base := `
summon:
  gem_cost: {1: 10, 11: 100}
  rarity_weights: {common: 1}
dice:
  - {id: a, name: A, rarity: common, upgrade_costs: {1: {cards: 1, gold: 0}}}
`
	_, err := ParseCatalog([]byte(base))
	require.NoError(t, err)

	cases := map[string]string{
		"unknown field":    strings.Replace(base, "summon:", "bogus: 1\nsummon:", 1),
		"no dice":          "summon:\n  gem_cost: {1: 1, 11: 1}\n  rarity_weights: {common: 1}\n",
		"duplicate id":     base + "  - {id: a, name: A2, rarity: common, upgrade_costs: {1: {cards: 1}}}\n",
		"bad rarity":       strings.Replace(base, "rarity: common", "rarity: mythic", 1),
		"missing cost":     strings.Replace(base, ", upgrade_costs: {1: {cards: 1, gold: 0}}", "", 1),
		"missing gem cost": strings.Replace(base, "gem_cost: {1: 10, 11: 100}", "gem_cost: {1: 10}", 1),
		"orphan weight":    strings.Replace(base, "{common: 1}", "{common: 1, legend: 1}", 1),
		"zero weights":     strings.Replace(base, "{common: 1}", "{common: 0}", 1),
		"unknown starting": base + "starting:\n  owned: {zzz: {quantity: 1, class_level: 1}}\n",
	}
	for name, doc := range cases {
		_, err := ParseCatalog([]byte(doc))
		assert.True(t, errors.Is(err, ErrInvalidCatalog), "%s: %v", name, err)
	}
}
