package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lk2023060901/dicedeck/app/client/internal/manager"
	"github.com/lk2023060901/dicedeck/pkg/app"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/spf13/pflag"
)

var (
	flagVersion  = pflag.BoolP("version", "v", false, "print version and exit")
	flagSummon   = pflag.Int("summon", 0, "summon 1 or 11 dice")
	flagSkip     = pflag.Bool("skip", false, "skip the reveal animation")
	flagReveal   = pflag.Duration("reveal-timeout", 5*time.Second, "skip remaining reveals after this long")
	flagUpgrade  = pflag.String("upgrade", "", "upgrade the given dice id")
	flagDeckSlot = pflag.Int("deck-slot", -1, "deck slot to select (0-4)")
	flagDeckDice = pflag.String("deck-dice", "", "dice id to place into the selected slot")
	flagSort     = pflag.String("sort", "rarity", "collection order: rarity, level or name")
)

func parseSort(s string) manager.SortType {
	switch strings.ToLower(s) {
	case "level":
		return manager.SortLevel
	case "name":
		return manager.SortName
	default:
		return manager.SortRarity
	}
}

func main() {
	// 1. 加载配置（内部解析命令行）
	cfg, mgr, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *flagVersion {
		fmt.Println(app.GetInfo())
		return
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log, logger.WithName(app.AppName), logger.WithGlobalFields("version", app.GetInfo().Version))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = l.Sync() }()
	logger.SetDefault(l)

	// 3. 通过 Wire 组装客户端
	client, cleanup, err := InitClient(cfg, l)
	if err != nil {
		l.Error("failed to initialize client", "error", err)
		os.Exit(1)
	}
	defer cleanup()
	watchConfig(mgr, client.session, l, l)

	ctx, stop := signal.NotifyContext(logger.WithPlayerID(context.Background(), cfg.Session.PlayerID), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. 执行
	act := Action{
		Summon:   *flagSummon,
		Skip:     *flagSkip,
		Upgrade:  *flagUpgrade,
		DeckSlot: *flagDeckSlot,
		DeckDice: *flagDeckDice,
		Sort:     parseSort(*flagSort),
		Reveal:   *flagReveal,
	}
	if err := client.Run(ctx, act); err != nil {
		l.Error("client exited with error", "error", err)
	}
}
