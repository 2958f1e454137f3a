// Package recommend 按环境和口味推荐饮料
package recommend

import (
	"github.com/wfunc/vending-kiosk/internal/inventory"
	"github.com/wfunc/vending-kiosk/internal/sensor"
)

// AnyTaste 不限口味
const AnyTaste inventory.Taste = 0

// Query 顾客的选择
type Query struct {
	Thermal  inventory.Thermal
	Mood     inventory.Mood
	Taste    inventory.Taste
	Caffeine bool
}

// Matches 除口味外全部精确匹配，且有库存
func (q Query) Matches(it inventory.Item) bool {
	return it.Thermal == q.Thermal &&
		it.Mood == q.Mood &&
		it.Caffeine == q.Caffeine &&
		(q.Taste == AnyTaste || it.Taste == q.Taste) &&
		it.Stock > 0
}

// Filter 按目录顺序返回符合条件的商品，可能为空
func Filter(items []inventory.Item, q Query) []inventory.Entry {
	var out []inventory.Entry
	for i, it := range items {
		if q.Matches(it) {
			out = append(out, inventory.Entry{Index: i, Item: it})
		}
	}
	return out
}

// Band 温度区间
type Band int

const (
	BandNone Band = iota
	BandHot
	BandMild
	BandChilly
	BandFreezing
)

// BandOf 温度对应的区间，超出 -20..35 返回 BandNone
func BandOf(temp int) Band {
	switch {
	case temp >= 25 && temp <= 35:
		return BandHot
	case temp >= 10 && temp < 25:
		return BandMild
	case temp >= 0 && temp < 10:
		return BandChilly
	case temp >= -20 && temp < 0:
		return BandFreezing
	default:
		return BandNone
	}
}

// Greeting 温度区间的问候语
func (b Band) Greeting() string {
	switch b {
	case BandHot:
		return "天气很热，来一杯冰饮吧！"
	case BandMild:
		return "秋高气爽的好天气！"
	case BandChilly:
		return "天气有点凉，来一杯热饮吧！"
	case BandFreezing:
		return "天气太冷了，热饮暖暖身子！"
	default:
		return ""
	}
}

// Engine 读取环境传感器
type Engine struct {
	env       sensor.Environment
	analog    sensor.Analog
	channel   int
	threshold int
}

// NewEngine 创建推荐引擎，光照读数大于 threshold 视为夜间
func NewEngine(env sensor.Environment, analog sensor.Analog, channel, threshold int) *Engine {
	return &Engine{env: env, analog: analog, channel: channel, threshold: threshold}
}

// Environment 读取温湿度，校验失败原样返回 sensor.ErrDecode
func (e *Engine) Environment() (sensor.Reading, error) {
	return e.env.ReadEnvironment()
}

// Caffeine 根据光照决定是否推荐含咖啡因饮料
//
// 光敏电阻在暗处读数高：读数大于阈值为夜间，不推荐咖啡因。
func (e *Engine) Caffeine() (caffeine bool, light int, err error) {
	light, err = e.analog.ReadAnalog(e.channel)
	if err != nil {
		return false, 0, err
	}
	return light <= e.threshold, light, nil
}

// Recommend 过滤目录
func (e *Engine) Recommend(catalog *inventory.Catalog, q Query) []inventory.Entry {
	return Filter(catalog.Snapshot(), q)
}
