package model

// MaxLevel 骰子最高等级
const MaxLevel int32 = 20

// MaxPowerTier 战斗内强化的最高档位
const MaxPowerTier int32 = 5

// Rarity 稀有度
type Rarity string

const (
	RarityCommon Rarity = "common"
	RarityRare   Rarity = "rare"
	RarityHero   Rarity = "hero"
	RarityLegend Rarity = "legend"
)

// Rarities 按稀有度从低到高
var Rarities = []Rarity{RarityCommon, RarityRare, RarityHero, RarityLegend}

// Valid 是否为已知稀有度
func (r Rarity) Valid() bool {
	return r.Rank() > 0
}

// Rank 排序权重，未知稀有度为 0
func (r Rarity) Rank() int {
	switch r {
	case RarityCommon:
		return 1
	case RarityRare:
		return 2
	case RarityHero:
		return 3
	case RarityLegend:
		return 4
	default:
		return 0
	}
}

// Stat 随等级成长的数值
// current = Base + (level-1)*PerLevel
type Stat struct {
	Base          float64 `json:"base" codec:"base" yaml:"base"`
	PerLevel      float64 `json:"per_level" codec:"per_level" yaml:"per_level"`
	PerPowerTier  float64 `json:"per_power_tier" codec:"per_power_tier" yaml:"per_power_tier"`
	DisplayFormat string  `json:"display_format,omitempty" codec:"display_format,omitempty" yaml:"display_format,omitempty"`
}

// SpecialStat 附加属性（暴击率、减速等）
type SpecialStat struct {
	Key  string `json:"key" codec:"key" yaml:"key"`
	Stat `yaml:",inline"`
}

// UpgradeCost 升到某一级的消耗
type UpgradeCost struct {
	CardsRequired int32 `json:"cards_required" codec:"cards_required" yaml:"cards"`
	GoldRequired  int64 `json:"gold_required" codec:"gold_required" yaml:"gold"`
}

// DiceDefinition 骰子配置（加载后只读）
// UpgradeCosts 以目标等级为键，键 1 为解锁消耗
type DiceDefinition struct {
	ID           string                `json:"id" codec:"id" yaml:"id"`
	Name         string                `json:"name" codec:"name" yaml:"name"`
	Rarity       Rarity                `json:"rarity" codec:"rarity" yaml:"rarity"`
	Attack       *Stat                 `json:"attack,omitempty" codec:"attack,omitempty" yaml:"attack,omitempty"`
	AttackSpeed  *Stat                 `json:"attack_speed,omitempty" codec:"attack_speed,omitempty" yaml:"attack_speed,omitempty"`
	TargetMode   string                `json:"target_mode,omitempty" codec:"target_mode,omitempty" yaml:"target_mode,omitempty"`
	Specials     []SpecialStat         `json:"specials,omitempty" codec:"specials,omitempty" yaml:"specials,omitempty"`
	UpgradeCosts map[int32]UpgradeCost `json:"upgrade_costs,omitempty" codec:"upgrade_costs,omitempty" yaml:"upgrade_costs,omitempty"`
}

// Clone 深拷贝
func (d *DiceDefinition) Clone() *DiceDefinition {
	if d == nil {
		return nil
	}
	out := *d
	out.Attack = cloneStat(d.Attack)
	out.AttackSpeed = cloneStat(d.AttackSpeed)
	if d.Specials != nil {
		out.Specials = make([]SpecialStat, len(d.Specials))
		copy(out.Specials, d.Specials)
	}
	if d.UpgradeCosts != nil {
		out.UpgradeCosts = make(map[int32]UpgradeCost, len(d.UpgradeCosts))
		for k, v := range d.UpgradeCosts {
			out.UpgradeCosts[k] = v
		}
	}
	return &out
}

func cloneStat(s *Stat) *Stat {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// OwnedDiceState 玩家持有状态
// ClassLevel == 0 表示从未解锁，解锁后 Quantity 仍可能 > 0（攒着升级用的卡）
type OwnedDiceState struct {
	Quantity   int32 `json:"quantity" codec:"quantity" yaml:"quantity"`
	ClassLevel int32 `json:"class_level" codec:"class_level" yaml:"class_level"`
}

// Unlocked 是否已解锁
func (o OwnedDiceState) Unlocked() bool {
	return o.ClassLevel > 0
}

// Dice 收藏快照中的一项，Owned 为空表示未拥有
type Dice struct {
	Definition DiceDefinition  `json:"definition" codec:"definition"`
	Owned      *OwnedDiceState `json:"owned,omitempty" codec:"owned,omitempty"`
}

// Clone 深拷贝
func (d *Dice) Clone() *Dice {
	if d == nil {
		return nil
	}
	out := &Dice{Definition: *d.Definition.Clone()}
	if d.Owned != nil {
		o := *d.Owned
		out.Owned = &o
	}
	return out
}
