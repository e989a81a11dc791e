package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lk2023060901/dicedeck/app/client/internal/manager"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/lk2023060901/dicedeck/app/client/internal/service"
	"github.com/lk2023060901/dicedeck/app/client/internal/summon"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/mattn/go-runewidth"
)

// Client 命令行客户端，把一次调用翻译成会话操作
type Client struct {
	session *service.Session
	logger  logger.Logger
	out     io.Writer
}

func newClient(s *service.Session, l logger.Logger) *Client {
	return &Client{session: s, logger: l.Named("client"), out: os.Stdout}
}

// Action 一次命令行调用要执行的操作
type Action struct {
	Summon   int
	Skip     bool
	Upgrade  string
	DeckSlot int
	DeckDice string
	Sort     manager.SortType
	Reveal   time.Duration
}

// Run 初始化会话，执行操作并打印收藏
func (c *Client) Run(ctx context.Context, act Action) error {
	// 1. 拉取收藏、货币和卡组
	if err := c.session.Init(ctx); err != nil {
		return err
	}
	defer c.session.Flush()

	// 2. 执行操作，失败已经通过提示告知，不中断后续展示
	if act.Summon > 0 {
		if err := c.summon(ctx, act); err != nil {
			c.logger.Warn("summon failed", "error", err)
		}
	}
	if act.Upgrade != "" {
		if st, err := c.session.Upgrade(ctx, act.Upgrade); err == nil {
			fmt.Fprintf(c.out, "%s upgraded to level %d\n", act.Upgrade, st.ClassLevel)
		}
	}
	if act.DeckSlot >= 0 {
		if err := c.session.SelectSlot(ctx, act.DeckSlot); err == nil && act.DeckDice != "" {
			_ = c.session.AssignDice(ctx, act.DeckDice)
		}
	}

	// 3. 展示
	c.printResources()
	c.printDeck()
	c.printCollection(act.Sort)
	return nil
}

func (c *Client) summon(ctx context.Context, act Action) error {
	seq, err := c.session.Summon(ctx, act.Summon, summon.Hooks{
		OnRevealed: func(v summon.ItemView) {
			fmt.Fprintf(c.out, "  #%-2d %-4s %s (%s)\n", v.Index+1, v.Class, v.Result.DisplayName, v.Result.Rarity)
		},
	})
	if err != nil {
		return err
	}

	// 命令行没有点击，不跳过时等待自动揭晓，超时后强制跳过
	if act.Skip {
		_, _ = c.session.SkipSummon()
	}
	runCtx, cancel := context.WithTimeout(ctx, act.Reveal)
	defer cancel()

	runner := summon.NewRunner(seq, c.session.Clock())
	go func() {
		<-runCtx.Done()
		_, _ = c.session.SkipSummon()
	}()
	if err := runner.Run(ctx); err != nil {
		return err
	}
	return c.session.CloseSummon(ctx)
}

func (c *Client) printResources() {
	res, ok := c.session.Resources()
	if !ok {
		return
	}
	fmt.Fprintf(c.out, "\ngems %d  gold %d  tickets %d\n", res.Gems, res.Gold, res.Tickets)
}

func (c *Client) printDeck() {
	slots := c.session.Deck().Slots()
	names := make([]string, len(slots))
	for i, id := range slots {
		if id == "" {
			id = "-"
		}
		names[i] = id
	}
	fmt.Fprintf(c.out, "deck [%s]  avg level %.1f\n\n", strings.Join(names, " | "), c.session.Deck().AverageLevel())
}

var columns = []struct {
	title string
	width int
}{
	{"骰子", 14}, {"稀有度", 8}, {"等级", 6}, {"卡牌", 10}, {"攻击", 8}, {"满强", 8}, {"攻速", 8}, {"升级", 16},
}

func (c *Client) printCollection(sortType manager.SortType) {
	var gold int64
	if res, ok := c.session.Resources(); ok {
		gold = res.Gold
	}

	var sb strings.Builder
	for _, col := range columns {
		sb.WriteString(runewidth.FillRight(col.title, col.width))
	}
	fmt.Fprintln(c.out, strings.TrimRight(sb.String(), " "))

	for _, v := range c.session.Collection().Views(sortType, gold) {
		cells := []string{
			v.Name,
			string(v.Rarity),
			levelCell(v),
			cardsCell(v),
			v.Attack.String(),
			v.PoweredAttack.String(),
			v.AttackSpeed.String(),
			upgradeCell(v),
		}
		sb.Reset()
		for i, cell := range cells {
			sb.WriteString(runewidth.FillRight(runewidth.Truncate(cell, columns[i].width-1, "…"), columns[i].width))
		}
		fmt.Fprintln(c.out, strings.TrimRight(sb.String(), " "))
	}
}

func levelCell(v manager.DiceView) string {
	if !v.Owned || v.ClassLevel == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", v.ClassLevel)
}

func cardsCell(v manager.DiceView) string {
	if v.Next.Max || v.Next.Err != nil {
		return fmt.Sprintf("%d", v.Quantity)
	}
	return fmt.Sprintf("%d/%d", v.Quantity, v.Next.Cost.CardsRequired)
}

func upgradeCell(v manager.DiceView) string {
	switch {
	case v.Next.Max:
		return "MAX"
	case v.Next.Err != nil:
		return "?"
	case v.Next.Eligible:
		return fmt.Sprintf("ready (%d gold)", v.Next.Cost.GoldRequired)
	case v.ClassLevel == 0 && v.Quantity == 0:
		return model.ClassNew.String()
	default:
		return fmt.Sprintf("%d gold", v.Next.Cost.GoldRequired)
	}
}
