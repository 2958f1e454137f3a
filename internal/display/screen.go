// Package display 屏幕输出和蜂鸣器
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Screen 文本屏幕
type Screen interface {
	Show(row, col int, text string)
	Clear()
}

// Terminal 输出到终端的屏幕
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminal 创建终端屏幕
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) Show(row, col int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s%s\n", strings.Repeat(" ", col), text)
}

func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, "----------------------------------------")
}

// Line 一次 Show 调用
type Line struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Text string `json:"text"`
}

// Recorder 记录当前画面，用于测试
type Recorder struct {
	mu     sync.Mutex
	frame  []Line
	frames [][]Line
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Show(row, col int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = append(r.frame, Line{Row: row, Col: col, Text: text})
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frame) > 0 {
		r.frames = append(r.frames, r.frame)
	}
	r.frame = nil
}

// Text 当前画面的全部文本
func (r *Recorder) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return joinLines(r.frame)
}

// History 所有画面的文本，包括当前画面
func (r *Recorder) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.frames)+1)
	for _, f := range r.frames {
		out = append(out, joinLines(f))
	}
	if len(r.frame) > 0 {
		out = append(out, joinLines(r.frame))
	}
	return out
}

// Contains 任一画面包含 s
func (r *Recorder) Contains(s string) bool {
	for _, text := range r.History() {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func joinLines(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// Publisher 画面广播目标
type Publisher interface {
	Publish(msgType string, payload interface{}) error
}

// Frame 广播的完整画面
type Frame struct {
	Lines []Line `json:"lines"`
}

// Mirror 在本地屏幕输出的同时广播到运维端
type Mirror struct {
	mu     sync.Mutex
	inner  Screen
	pub    Publisher
	lines  []Line
	logger *zap.Logger
}

// NewMirror 创建镜像屏幕
func NewMirror(inner Screen, pub Publisher, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{inner: inner, pub: pub, logger: log}
}

func (m *Mirror) Show(row, col int, text string) {
	m.inner.Show(row, col, text)

	m.mu.Lock()
	m.lines = append(m.lines, Line{Row: row, Col: col, Text: text})
	frame := Frame{Lines: append([]Line(nil), m.lines...)}
	m.mu.Unlock()

	m.publish(frame)
}

func (m *Mirror) Clear() {
	m.inner.Clear()

	m.mu.Lock()
	m.lines = nil
	m.mu.Unlock()

	m.publish(Frame{})
}

func (m *Mirror) publish(frame Frame) {
	if err := m.pub.Publish("display", frame); err != nil {
		m.logger.Debug("画面广播失败", zap.Error(err))
	}
}
