package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lk2023060901/dicedeck/app/client/internal/manager"
	"github.com/lk2023060901/dicedeck/pkg/config"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *bytes.Buffer) {
	t.Helper()

	cfg := defaultConfig()
	cfg.Session.PlayerID = "cli"
	cfg.Session.Sequencer.SkipStagger = time.Millisecond
	cfg.Session.Sequencer.RevealDuration = time.Millisecond
	cfg.Gateway.Local.Catalog = "catalog.yaml"

	c, cleanup, err := InitClient(cfg, logger.NewNoop())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	var out bytes.Buffer
	c.out = &out
	return c, &out
}

func TestClientSummonAndPrint(t *testing.T) {
	c, out := newTestClient(t)

	err := c.Run(context.Background(), Action{
		Summon:   11,
		Skip:     true,
		DeckSlot: -1,
		Sort:     manager.SortName,
		Reveal:   5 * time.Second,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "#11")
	assert.Contains(t, text, "gems 1500")
	assert.Contains(t, text, "deck [fire | ice | - | - | -]")
	assert.Contains(t, text, "火焰骰")
	assert.Nil(t, c.session.Active())
}

func TestClientUpgradeAndDeck(t *testing.T) {
	c, out := newTestClient(t)

	err := c.Run(context.Background(), Action{
		Upgrade:  "fire",
		DeckSlot: 2,
		DeckDice: "poison",
		Reveal:   time.Second,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "fire upgraded to level 3")
	assert.Contains(t, text, "gold 200")
	assert.Contains(t, text, "deck [fire | ice | poison | - | -]")
}

func TestWatchConfigReloads(t *testing.T) {
	c, _ := newTestClient(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))
	mgr := config.NewManager()
	require.NoError(t, mgr.LoadFile(path))

	var buf bytes.Buffer
	l, err := logger.New(&logger.Config{Format: logger.JSONFormat}, logger.WithOutput(&buf))
	require.NoError(t, err)
	watchConfig(mgr, c.session, logger.NewNoop(), l)

	before := c.session.Timing()
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
session:
  sequencer:
    single_delay: 2s
`), 0o644))

	require.Eventually(t, func() bool {
		return l.GetLevel() == logger.DebugLevel && c.session.Timing().SingleDelay == 2*time.Second
	}, 5*time.Second, 20*time.Millisecond)

	// 未出现在文件里的参数保持原值
	after := c.session.Timing()
	assert.Equal(t, before.SkipStagger, after.SkipStagger)
	assert.Equal(t, before.Columns, after.Columns)
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, manager.SortLevel, parseSort("LEVEL"))
	assert.Equal(t, manager.SortName, parseSort("name"))
	assert.Equal(t, manager.SortRarity, parseSort("bogus"))
}
