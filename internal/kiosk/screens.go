package kiosk

import (
	"fmt"

	"github.com/wfunc/vending-kiosk/internal/recommend"
)

func (c *Controller) showHome() {
	s := c.deps.Screen
	balance := c.deps.State.Balance()
	s.Clear()
	s.Show(0, 0, "欢迎使用饮料售货机！")
	s.Show(1, 0, fmt.Sprintf("机内余额: %d元", balance))
	s.Show(2, 0, "1. 浏览饮料  2. 饮料推荐")
	if balance < c.cfg.LowBalanceMark {
		s.Show(3, 0, "现金找零不足，建议刷卡支付")
	}
}

func (c *Controller) showBrowsing() {
	s := c.deps.Screen
	catalog := c.deps.State.Catalog
	s.Clear()
	s.Show(0, 0, fmt.Sprintf("饮料列表 (第 %d/%d 页)", c.page+1, catalog.PageCount()))
	for i, e := range catalog.Page(c.page) {
		mark := ""
		if e.Item.SoldOut() {
			mark = " (售罄)"
		}
		s.Show(i+1, 0, fmt.Sprintf("%d. %s %d元%s", e.Index+1, e.Item.Name, e.Item.Price, mark))
	}
	s.Show(catalog.PageSize()+1, 0, "饮料编号: "+string(c.digits))
	s.Show(catalog.PageSize()+2, 0, "E: 确认  D: 下一页  H: 首页")
}

func (c *Controller) showChooser() {
	s := c.deps.Screen
	item, _ := c.deps.State.Catalog.ItemAt(c.selected)
	s.Clear()
	s.Show(0, 0, fmt.Sprintf("已选择: %s (%d元)", item.Name, item.Price))
	s.Show(1, 0, "请选择支付方式:")
	s.Show(2, 0, "1. 现金支付")
	s.Show(3, 0, "2. 刷卡支付")
	s.Show(4, 0, "H. 返回首页")
}

func (c *Controller) showCash() {
	s := c.deps.Screen
	tx := c.cash
	item := tx.Item()
	s.Clear()
	s.Show(0, 0, "已选择: "+item.Name)
	s.Show(1, 0, fmt.Sprintf("价格: %d元", item.Price))
	s.Show(2, 0, fmt.Sprintf("投入金额: %d元", tx.Tendered()))
	s.Show(3, 0, fmt.Sprintf("找零: %d元", tx.Change()))
	s.Show(5, 0, "请输入投入金额: "+tx.Digits())
	s.Show(6, 0, "E: 确认  D: 退格  H: 首页")
}

func (c *Controller) showCard() {
	s := c.deps.Screen
	s.Clear()
	s.Show(0, 0, "请将卡片放在读卡器上...")
}

func (c *Controller) showRecommend() {
	s := c.deps.Screen
	f := &c.rec
	s.Clear()
	switch f.stage {
	case stageThermal:
		r := f.reading
		s.Show(0, 0, "当前"+r.String())
		if greeting := recommend.BandOf(r.Temperature).Greeting(); greeting != "" {
			s.Show(1, 0, greeting)
		}
		s.Show(2, 0, "1. 冷饮  2. 热饮")
	case stageMood:
		s.Show(0, 0, "请选择您的心情:")
		s.Show(1, 0, "1. 神清气爽")
		s.Show(2, 0, "2. 心情平静")
		s.Show(3, 0, "3. 有点疲惫")
	case stageTaste:
		s.Show(0, 0, "请选择口味偏好:")
		s.Show(1, 0, "1. 甜")
		s.Show(2, 0, "2. 苦")
		s.Show(3, 0, "3. 都可以")
	case stageResults:
		s.Show(0, 0, "推荐饮料:")
		for i, e := range f.results {
			s.Show(i+1, 0, fmt.Sprintf("%d. %s (%d元, 库存 %d)", i+1, e.Item.Name, e.Item.Price, e.Item.Stock))
		}
		s.Show(len(f.results)+1, 0, "饮料编号: "+string(f.digits))
		s.Show(len(f.results)+2, 0, "E: 确认  H: 首页")
	}
}
