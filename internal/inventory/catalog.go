// Package inventory 饮料目录和库存
package inventory

import (
	"sync"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
)

// Thermal 冷热分类
type Thermal int

const (
	Cold Thermal = iota + 1
	Hot
)

func (t Thermal) String() string {
	if t == Hot {
		return "hot"
	}
	return "cold"
}

// Mood 适合的心情
type Mood int

const (
	Energetic Mood = iota + 1 // 清爽
	Calm                      // 平静
	Tired                     // 疲惫
)

func (m Mood) String() string {
	switch m {
	case Energetic:
		return "energetic"
	case Calm:
		return "calm"
	case Tired:
		return "tired"
	default:
		return "unknown"
	}
}

// Taste 口味
type Taste int

const (
	Sweet Taste = iota + 1
	Bitter
	Neutral
)

func (t Taste) String() string {
	switch t {
	case Sweet:
		return "sweet"
	case Bitter:
		return "bitter"
	case Neutral:
		return "neutral"
	default:
		return "unknown"
	}
}

var (
	ErrSoldOut         = apperrors.New(apperrors.ErrItemSoldOut)
	ErrInvalidQuantity = apperrors.New(apperrors.ErrInvalidQuantity)
	ErrIndex           = apperrors.New(apperrors.ErrInvalidSelection)
)

// Item 一种饮料
type Item struct {
	Name     string  `json:"name"`
	Thermal  Thermal `json:"thermal"`
	Mood     Mood    `json:"mood"`
	Taste    Taste   `json:"taste"`
	Caffeine bool    `json:"caffeine"`
	Price    int     `json:"price"`
	Stock    int     `json:"stock"`
	Gate     int     `json:"gate_pin"`
}

// GatePin 出货舵机引脚
func (i Item) GatePin() int {
	return i.Gate
}

// SoldOut 库存为0即售罄
func (i Item) SoldOut() bool {
	return i.Stock == 0
}

// Entry 带目录下标的商品
type Entry struct {
	Index int
	Item  Item
}

// Catalog 固定顺序的商品目录
//
// 库存只能通过 Decrement 和 Restock 修改。
type Catalog struct {
	mu       sync.RWMutex
	items    []Item
	pageSize int
}

// NewCatalog 由静态表创建目录，pageSize<=0 时按每页5项
func NewCatalog(items []Item, pageSize int) *Catalog {
	if pageSize <= 0 {
		pageSize = 5
	}
	cp := make([]Item, len(items))
	copy(cp, items)
	return &Catalog{items: cp, pageSize: pageSize}
}

// Len 商品数量
func (c *Catalog) Len() int {
	return len(c.items)
}

// PageSize 每页商品数
func (c *Catalog) PageSize() int {
	return c.pageSize
}

// PageCount 总页数
func (c *Catalog) PageCount() int {
	return (len(c.items) + c.pageSize - 1) / c.pageSize
}

// Page 第p页的商品，越界返回nil
func (c *Catalog) Page(p int) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := p * c.pageSize
	if p < 0 || start >= len(c.items) {
		return nil
	}
	end := start + c.pageSize
	if end > len(c.items) {
		end = len(c.items)
	}
	out := make([]Entry, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, Entry{Index: i, Item: c.items[i]})
	}
	return out
}

// ItemAt 返回商品副本
func (c *Catalog) ItemAt(i int) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.items) {
		return Item{}, ErrIndex
	}
	return c.items[i], nil
}

// IsPurchasable 有库存即可购买
func (c *Catalog) IsPurchasable(i int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return i >= 0 && i < len(c.items) && c.items[i].Stock > 0
}

// Decrement 出货后库存减一
func (c *Catalog) Decrement(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.items) {
		return ErrIndex
	}
	if c.items[i].Stock == 0 {
		return ErrSoldOut
	}
	c.items[i].Stock--
	return nil
}

// Restock 补货
func (c *Catalog) Restock(i, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.items) {
		return ErrIndex
	}
	c.items[i].Stock += qty
	return nil
}

// Snapshot 全部商品的副本
func (c *Catalog) Snapshot() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}
