package model

// 抽卡次数
const (
	SummonSingle int = 1
	SummonMulti  int = 11
)

// ValidSummonCount 是否为合法的抽卡次数
func ValidSummonCount(n int) bool {
	return n == SummonSingle || n == SummonMulti
}

// SummonResult 服务端确认的单个抽卡结果
type SummonResult struct {
	DiceID      string `json:"dice_id" codec:"dice_id"`
	Rarity      Rarity `json:"rarity" codec:"rarity"`
	DisplayName string `json:"display_name" codec:"display_name"`
}

// Resources 玩家货币
type Resources struct {
	Gems    int64 `json:"gems" codec:"gems" yaml:"gems"`
	Gold    int64 `json:"gold" codec:"gold" yaml:"gold"`
	Tickets int64 `json:"tickets" codec:"tickets" yaml:"tickets"`
}

// Classification 抽卡结果相对当前收藏的分类
type Classification int

const (
	ClassKnown Classification = iota // 已解锁
	ClassNew                         // 首次获得（未拥有或未解锁）
)

func (c Classification) String() string {
	if c == ClassNew {
		return "NEW"
	}
	return "KNOWN"
}
