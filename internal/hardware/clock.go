package hardware

import (
	"sync"
	"time"
)

// Clock 时间源，所有忙等都经由它休眠
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock 系统时钟
type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// SimClock 虚拟时钟，Sleep 只推进时间不阻塞
type SimClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewSimClock 创建虚拟时钟
func NewSimClock(start time.Time) *SimClock {
	return &SimClock{now: start}
}

func (c *SimClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *SimClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Elapsed 距离start经过的时间
func (c *SimClock) Elapsed(start time.Time) time.Duration {
	return c.Now().Sub(start)
}
