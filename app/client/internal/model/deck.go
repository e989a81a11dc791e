package model

// DeckSize 卡组槽位数
const DeckSize = 5

// DeckSlots 卡组，空字符串表示空槽
type DeckSlots [DeckSize]string

// Index 返回 id 所在槽位，不存在返回 -1
func (s DeckSlots) Index(id string) int {
	if id == "" {
		return -1
	}
	for i, v := range s {
		if v == id {
			return i
		}
	}
	return -1
}

// Filled 已占用槽位数
func (s DeckSlots) Filled() int {
	n := 0
	for _, v := range s {
		if v != "" {
			n++
		}
	}
	return n
}
