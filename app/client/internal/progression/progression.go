// Package progression 骰子数值成长与升级规则，纯函数无副作用
package progression

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
)

var (
	// ErrMaxLevel 已满级，不存在下一级消耗
	ErrMaxLevel = errors.New("progression: dice is at max level")

	// ErrCostEntryMissing 消耗表缺少对应等级，属于配置错误
	ErrCostEntryMissing = errors.New("progression: upgrade cost entry missing")
)

// StatValue 计算后的数值，Applicable=false 表示该骰子没有这项属性
type StatValue struct {
	Value      float64
	Applicable bool
}

// NotApplicable 缺省属性的哨兵值
var NotApplicable = StatValue{}

// String 不适用时渲染为 "-"
func (v StatValue) String() string {
	if !v.Applicable {
		return "-"
	}
	return strconv.FormatFloat(v.Value, 'f', -1, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CurrentStat 计算指定等级的数值: base + (level-1)*perLevel
// 未解锁（level<1）按 1 级展示
func CurrentStat(stat *model.Stat, level int32) StatValue {
	if stat == nil {
		return NotApplicable
	}
	if level < 1 {
		level = 1
	}
	return StatValue{
		Value:      round2(stat.Base + float64(level-1)*stat.PerLevel),
		Applicable: true,
	}
}

// PoweredStat 战斗内强化后的数值，tier 从 1 开始
func PoweredStat(stat *model.Stat, level, tier int32) StatValue {
	v := CurrentStat(stat, level)
	if !v.Applicable {
		return v
	}
	if tier < 1 {
		tier = 1
	}
	v.Value = round2(v.Value + float64(tier-1)*stat.PerPowerTier)
	return v
}

// FormatStat 按属性的展示格式渲染，格式为空时使用默认形式
func FormatStat(v StatValue, displayFormat string) string {
	if !v.Applicable {
		return v.String()
	}
	if displayFormat == "" || !strings.Contains(displayFormat, "%") {
		return v.String() + displayFormat
	}
	return fmt.Sprintf(displayFormat, v.Value)
}

// UpgradeCost 返回从 currentLevel 升到下一级的消耗
// 满级返回 ErrMaxLevel，缺表项返回 ErrCostEntryMissing
func UpgradeCost(def *model.DiceDefinition, currentLevel int32) (model.UpgradeCost, error) {
	if currentLevel >= model.MaxLevel {
		return model.UpgradeCost{}, ErrMaxLevel
	}
	if currentLevel < 0 {
		currentLevel = 0
	}
	target := currentLevel + 1
	cost, ok := def.UpgradeCosts[target]
	if !ok {
		return model.UpgradeCost{}, errors.Wrapf(ErrCostEntryMissing, "dice %s level %d", def.ID, target)
	}
	return cost, nil
}

// IsUpgradeEligible 卡牌和金币是否足够升级
func IsUpgradeEligible(owned model.OwnedDiceState, cost model.UpgradeCost, availableGold int64) bool {
	return owned.ClassLevel < model.MaxLevel &&
		owned.Quantity >= cost.CardsRequired &&
		availableGold >= cost.GoldRequired
}

// Quote 下一次升级的报价，供界面展示
type Quote struct {
	Cost     model.UpgradeCost
	Max      bool
	Eligible bool
	Err      error
}

// NextUpgrade 计算报价，owned 为空视为未拥有
func NextUpgrade(def *model.DiceDefinition, owned *model.OwnedDiceState, availableGold int64) Quote {
	var state model.OwnedDiceState
	if owned != nil {
		state = *owned
	}

	cost, err := UpgradeCost(def, state.ClassLevel)
	switch {
	case errors.Is(err, ErrMaxLevel):
		return Quote{Max: true}
	case err != nil:
		return Quote{Err: err}
	}

	return Quote{
		Cost:     cost,
		Eligible: owned != nil && IsUpgradeEligible(state, cost, availableGold),
	}
}
