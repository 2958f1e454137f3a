package kiosk

import (
	"errors"

	"go.uber.org/zap"

	"github.com/wfunc/vending-kiosk/internal/inventory"
	"github.com/wfunc/vending-kiosk/internal/keypad"
	"github.com/wfunc/vending-kiosk/internal/recommend"
	"github.com/wfunc/vending-kiosk/internal/sensor"
)

type recommendStage int

const (
	stageThermal recommendStage = iota + 1
	stageMood
	stageTaste
	stageResults
)

// recommendFlow 推荐问答的进度
type recommendFlow struct {
	stage   recommendStage
	reading sensor.Reading
	query   recommend.Query
	light   int
	results []inventory.Entry
	digits  []byte
}

func (f *recommendFlow) clearInput() {
	f.digits = f.digits[:0]
}

var (
	thermals = map[keypad.Key]inventory.Thermal{'1': inventory.Cold, '2': inventory.Hot}
	moods    = map[keypad.Key]inventory.Mood{'1': inventory.Energetic, '2': inventory.Calm, '3': inventory.Tired}
	tastes   = map[keypad.Key]inventory.Taste{'1': inventory.Sweet, '2': inventory.Bitter, '3': recommend.AnyTaste}
)

// startRecommend 先读取温湿度，校验失败留在首页
func (c *Controller) startRecommend() {
	reading, err := c.deps.Recommend.Environment()
	if err != nil {
		if errors.Is(err, sensor.ErrDecode) {
			c.logger.Info("温湿度校验失败", zap.Error(err))
		} else {
			c.logger.Warn("温湿度读取失败", zap.Error(err))
		}
		c.message("温湿度读取失败，请稍后重试")
		c.showHome()
		return
	}

	c.rec = recommendFlow{stage: stageThermal, reading: reading}
	c.to(EventRecommend)
	c.showRecommend()
}

func (c *Controller) recommendKey(k keypad.Key) {
	if k == keypad.KeyHome {
		c.goHome()
		return
	}

	f := &c.rec
	switch f.stage {
	case stageThermal:
		t, ok := thermals[k]
		if !ok {
			c.message("无效的输入，请选择 1 或 2")
			break
		}
		f.query.Thermal = t
		f.stage = stageMood
	case stageMood:
		m, ok := moods[k]
		if !ok {
			c.message("无效的输入，请选择 1、2 或 3")
			break
		}
		f.query.Mood = m
		f.stage = stageTaste
	case stageTaste:
		t, ok := tastes[k]
		if !ok {
			c.message("无效的输入，请选择 1、2 或 3")
			break
		}
		f.query.Taste = t
		if !c.finishRecommend() {
			return
		}
	case stageResults:
		if !c.resultKey(k) {
			return
		}
	}
	c.showRecommend()
}

// finishRecommend 读取光照并生成推荐，没有结果时回到首页
func (c *Controller) finishRecommend() bool {
	f := &c.rec
	caffeine, light, err := c.deps.Recommend.Caffeine()
	if err != nil {
		c.logger.Warn("光照读取失败", zap.Error(err))
		c.message("光照传感器读取失败，请稍后重试")
		c.goHome()
		return false
	}
	f.query.Caffeine = caffeine
	f.light = light

	if caffeine {
		c.message("白天活动量大，为您推荐含咖啡因的饮料")
	} else {
		c.message("夜深了，为您推荐不含咖啡因的饮料")
	}

	f.results = c.deps.Recommend.Recommend(c.deps.State.Catalog, f.query)
	c.logger.Info("生成推荐",
		zap.String("thermal", f.query.Thermal.String()),
		zap.String("mood", f.query.Mood.String()),
		zap.Int("taste", int(f.query.Taste)),
		zap.Bool("caffeine", caffeine),
		zap.Int("light", light),
		zap.Int("results", len(f.results)))

	if len(f.results) == 0 {
		c.message("没有符合条件的饮料")
		c.goHome()
		return false
	}
	f.stage = stageResults
	f.clearInput()
	return true
}

// resultKey 处理推荐结果的编号输入，返回 false 表示已离开推荐界面
func (c *Controller) resultKey(k keypad.Key) bool {
	f := &c.rec
	switch {
	case k.IsDigit():
		if len(f.digits) < 2 {
			f.digits = append(f.digits, byte(k))
		}
	case k == keypad.KeyBack:
		if len(f.digits) > 0 {
			f.digits = f.digits[:len(f.digits)-1]
		}
	case k == keypad.KeyEnter:
		n := 0
		for _, d := range f.digits {
			n = n*10 + int(d-'0')
		}
		f.clearInput()
		if n < 1 || n > len(f.results) {
			c.message("无效的编号")
			return true
		}
		index := f.results[n-1].Index
		if !c.deps.State.Catalog.IsPurchasable(index) {
			c.message("该饮料已售罄，请选择其他饮料")
			return true
		}
		c.choose(index)
		return false
	}
	return true
}
