package keypad

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/wfunc/vending-kiosk/internal/hardware"
)

// Press 在模拟板上安排一次按键
func Press(board *hardware.SimBoard, cfg Config, k Key, at time.Time, hold time.Duration) bool {
	r, c, ok := Position(k)
	if !ok {
		return false
	}
	board.Connect(cfg.RowPins[r], cfg.ColPins[c], at, hold)
	return true
}

// PressChord 同时按住 H 和 E
func PressChord(board *hardware.SimBoard, cfg Config, at time.Time, hold time.Duration) {
	Press(board, cfg, KeyHome, at, hold)
	Press(board, cfg, KeyEnter, at, hold)
}

// 终端输入的按键节奏
const (
	feedHold  = 120 * time.Millisecond
	feedGap   = 300 * time.Millisecond
	chordHold = 1800 * time.Millisecond
)

// Feed 从终端逐行读取按键，'!' 表示管理员组合键
func Feed(ctx context.Context, r io.Reader, board *hardware.SimBoard, clock hardware.Clock, cfg Config) error {
	scanner := bufio.NewScanner(r)
	var next time.Time
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		at := clock.Now().Add(feedGap)
		if at.Before(next) {
			at = next
		}
		for _, ch := range strings.ToUpper(strings.TrimSpace(scanner.Text())) {
			if ch == '!' {
				PressChord(board, cfg, at, chordHold)
				at = at.Add(chordHold + feedGap)
				continue
			}
			if Press(board, cfg, Key(ch), at, feedHold) {
				at = at.Add(feedHold + feedGap)
			}
		}
		next = at
	}
	return scanner.Err()
}
