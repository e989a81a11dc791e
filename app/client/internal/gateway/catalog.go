package gateway

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog 本地目录配置错误
var ErrInvalidCatalog = errors.New("gateway: invalid catalog")

// Catalog 本地网关使用的骰子目录
type Catalog struct {
	Summon   SummonConfig                         `yaml:"summon"`
	Curves   map[model.Rarity][]model.UpgradeCost `yaml:"upgrade_curves"`
	Starting StartingState                        `yaml:"starting"`
	Dice     []model.DiceDefinition               `yaml:"dice"`
}

// SummonConfig 抽卡价格和稀有度权重
type SummonConfig struct {
	GemCost       map[int]int64            `yaml:"gem_cost"`
	RarityWeights map[model.Rarity]float64 `yaml:"rarity_weights"`
}

// StartingState 新玩家初始状态
type StartingState struct {
	Resources model.Resources                 `yaml:"resources"`
	Owned     map[string]model.OwnedDiceState `yaml:"owned"`
	Deck      []string                        `yaml:"deck"`
}

// LoadCatalog 从文件加载目录
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog 解析并校验目录，未知字段视为错误
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Wrap(ErrInvalidCatalog, err.Error())
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// normalize 校验目录，并为没有消耗表的骰子套用稀有度曲线
func (c *Catalog) normalize() error {
	if len(c.Dice) == 0 {
		return errors.Wrap(ErrInvalidCatalog, "no dice defined")
	}

	seen := make(map[string]bool, len(c.Dice))
	for i := range c.Dice {
		d := &c.Dice[i]
		if d.ID == "" {
			return errors.Wrapf(ErrInvalidCatalog, "dice #%d has no id", i)
		}
		if seen[d.ID] {
			return errors.Wrapf(ErrInvalidCatalog, "duplicate dice id %q", d.ID)
		}
		seen[d.ID] = true
		if !d.Rarity.Valid() {
			return errors.Wrapf(ErrInvalidCatalog, "dice %s: unknown rarity %q", d.ID, d.Rarity)
		}
		if len(d.UpgradeCosts) == 0 {
			curve := c.Curves[d.Rarity]
			if len(curve) == 0 {
				return errors.Wrapf(ErrInvalidCatalog, "dice %s: no upgrade costs and no %s curve", d.ID, d.Rarity)
			}
			d.UpgradeCosts = make(map[int32]model.UpgradeCost, len(curve))
			for l, cost := range curve {
				d.UpgradeCosts[int32(l+1)] = cost
			}
		}
	}

	for _, n := range []int{model.SummonSingle, model.SummonMulti} {
		if _, ok := c.Summon.GemCost[n]; !ok {
			return errors.Wrapf(ErrInvalidCatalog, "missing gem cost for %d summon", n)
		}
	}

	var total float64
	for r, w := range c.Summon.RarityWeights {
		if !r.Valid() || w < 0 {
			return errors.Wrapf(ErrInvalidCatalog, "bad rarity weight %s=%v", r, w)
		}
		if w > 0 && !c.hasRarity(r) {
			return errors.Wrapf(ErrInvalidCatalog, "rarity %s has weight but no dice", r)
		}
		total += w
	}
	if total <= 0 {
		return errors.Wrap(ErrInvalidCatalog, "rarity weights sum to zero")
	}

	for id, st := range c.Starting.Owned {
		if !seen[id] {
			return errors.Wrapf(ErrInvalidCatalog, "starting dice %q not in catalog", id)
		}
		if st.ClassLevel < 0 || st.ClassLevel > model.MaxLevel || st.Quantity < 0 {
			return errors.Wrapf(ErrInvalidCatalog, "starting dice %q has invalid state", id)
		}
	}
	if len(c.Starting.Deck) > model.DeckSize {
		return errors.Wrapf(ErrInvalidCatalog, "starting deck has %d slots", len(c.Starting.Deck))
	}
	return nil
}

func (c *Catalog) hasRarity(r model.Rarity) bool {
	for i := range c.Dice {
		if c.Dice[i].Rarity == r {
			return true
		}
	}
	return false
}
