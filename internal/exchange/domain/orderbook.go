package domain

import (
	"github.com/shopspring/decimal"
)

// OrderBook 单一市场的订单簿。价格优先、同价位按到达顺序（FIFO）。
// 仅由撮合引擎的单一工作协程访问，无内部锁
type OrderBook struct {
	baseAsset  string
	quoteAsset string
	// bids 按 (价格降序, 到达升序) 排列
	bids []*Order
	// asks 按 (价格升序, 到达升序) 排列
	asks           []*Order
	lastTradeID    int64
	lastTradePrice decimal.Decimal
}

// NewOrderBook 创建空订单簿
func NewOrderBook(baseAsset, quoteAsset string, lastTradePrice decimal.Decimal) *OrderBook {
	return &OrderBook{
		baseAsset:      baseAsset,
		quoteAsset:     quoteAsset,
		lastTradePrice: lastTradePrice,
	}
}

// Ticker 市场标识 base_quote
func (b *OrderBook) Ticker() string {
	return b.baseAsset + "_" + b.quoteAsset
}

// BaseAsset 基础资产
func (b *OrderBook) BaseAsset() string { return b.baseAsset }

// QuoteAsset 计价资产
func (b *OrderBook) QuoteAsset() string { return b.quoteAsset }

// LastTradeID 最近一笔成交 ID
func (b *OrderBook) LastTradeID() int64 { return b.lastTradeID }

// LastTradePrice 最近成交价
func (b *OrderBook) LastTradePrice() decimal.Decimal { return b.lastTradePrice }

// RestingOrders 当前挂单总数
func (b *OrderBook) RestingOrders() int { return len(b.bids) + len(b.asks) }

// AddOrder 撮合并挂单。买单按价格升序扫描卖盘，卖单按价格降序扫描买盘；
// 同一用户的对手挂单被跳过（自成交防护），扫描继续。
// 撮合结束后若仍有剩余数量，订单按优先级插入本方挂单。
// 返回成交数量与成交明细
func (b *OrderBook) AddOrder(order *Order) (decimal.Decimal, []Fill) {
	var fills []Fill
	if order.Side == SideBuy {
		fills = b.matchAsks(order)
	} else {
		fills = b.matchBids(order)
	}

	if order.Remaining().IsPositive() {
		b.insert(order)
	}

	return order.Filled, fills
}

// matchAsks 买方 taker 吃卖盘。沿用历史撮合规则：仅当卖价严格低于买价时成交
func (b *OrderBook) matchAsks(taker *Order) []Fill {
	var fills []Fill
	var kept []*Order

	for i := 0; i < len(b.asks); i++ {
		maker := b.asks[i]

		if taker.Remaining().IsZero() || !maker.Price.LessThan(taker.Price) {
			kept = append(kept, b.asks[i:]...)
			break
		}
		if maker.UserID == taker.UserID {
			kept = append(kept, maker)
			continue
		}

		fills = append(fills, b.execute(taker, maker))
		if maker.Remaining().IsPositive() {
			kept = append(kept, maker)
		}
	}

	b.asks = kept
	return fills
}

// matchBids 卖方 taker 吃买盘，买价不低于卖价即成交
func (b *OrderBook) matchBids(taker *Order) []Fill {
	var fills []Fill
	var kept []*Order

	for i := 0; i < len(b.bids); i++ {
		maker := b.bids[i]

		if taker.Remaining().IsZero() || maker.Price.LessThan(taker.Price) {
			kept = append(kept, b.bids[i:]...)
			break
		}
		if maker.UserID == taker.UserID {
			kept = append(kept, maker)
			continue
		}

		fills = append(fills, b.execute(taker, maker))
		if maker.Remaining().IsPositive() {
			kept = append(kept, maker)
		}
	}

	b.bids = kept
	return fills
}

// execute 以挂单价成交一对订单并推进成交序号
func (b *OrderBook) execute(taker, maker *Order) Fill {
	qty := decimal.Min(taker.Remaining(), maker.Remaining())

	taker.Filled = taker.Filled.Add(qty)
	maker.Filled = maker.Filled.Add(qty)

	b.lastTradeID++
	b.lastTradePrice = maker.Price

	return Fill{
		TradeID:      b.lastTradeID,
		Price:        maker.Price,
		Quantity:     qty,
		TakerOrderID: taker.OrderID,
		MakerOrderID: maker.OrderID,
		MakerUserID:  maker.UserID,
		MakerFilled:  maker.Filled,
	}
}

// insert 将订单按价格优先、同价位到达顺序插入本方挂单
func (b *OrderBook) insert(order *Order) {
	if order.Side == SideBuy {
		idx := len(b.bids)
		for i, o := range b.bids {
			if o.Price.LessThan(order.Price) {
				idx = i
				break
			}
		}
		b.bids = append(b.bids, nil)
		copy(b.bids[idx+1:], b.bids[idx:])
		b.bids[idx] = order
		return
	}

	idx := len(b.asks)
	for i, o := range b.asks {
		if o.Price.GreaterThan(order.Price) {
			idx = i
			break
		}
	}
	b.asks = append(b.asks, nil)
	copy(b.asks[idx+1:], b.asks[idx:])
	b.asks[idx] = order
}

// Cancel 按 ID 从订单簿移除订单。返回被移除的订单；不存在时 found 为 false
func (b *OrderBook) Cancel(orderID string) (order *Order, found bool) {
	for i, o := range b.bids {
		if o.OrderID == orderID {
			b.bids = append(b.bids[:i], b.bids[i+1:]...)
			return o, true
		}
	}
	for i, o := range b.asks {
		if o.OrderID == orderID {
			b.asks = append(b.asks[:i], b.asks[i+1:]...)
			return o, true
		}
	}
	return nil, false
}

// Lookup 按 ID 查找挂单但不移除
func (b *OrderBook) Lookup(orderID string) (order *Order, found bool) {
	for _, o := range b.bids {
		if o.OrderID == orderID {
			return o, true
		}
	}
	for _, o := range b.asks {
		if o.OrderID == orderID {
			return o, true
		}
	}
	return nil, false
}

// DepthLevel 聚合后的深度档位
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Depth 按价格档位聚合剩余数量。买盘降序、卖盘升序，每个价格一条
func (b *OrderBook) Depth() (bids, asks []DepthLevel) {
	return aggregate(b.bids), aggregate(b.asks)
}

// aggregate 聚合相邻同价订单（输入已按价格排序）
func aggregate(orders []*Order) []DepthLevel {
	var levels []DepthLevel
	for _, o := range orders {
		rem := o.Remaining()
		if n := len(levels); n > 0 && levels[n-1].Price.Equal(o.Price) {
			levels[n-1].Quantity = levels[n-1].Quantity.Add(rem)
			continue
		}
		levels = append(levels, DepthLevel{Price: o.Price, Quantity: rem})
	}
	return levels
}

// LevelQuantity 指定方向、指定价格档位的剩余总量（档位为空时为零）
func (b *OrderBook) LevelQuantity(side Side, price decimal.Decimal) decimal.Decimal {
	orders := b.asks
	if side == SideBuy {
		orders = b.bids
	}
	total := decimal.Zero
	for _, o := range orders {
		if o.Price.Equal(price) {
			total = total.Add(o.Remaining())
		}
	}
	return total
}

// OpenOrders 用户的全部挂单，顺序不保证
func (b *OrderBook) OpenOrders(userID string) []*Order {
	var orders []*Order
	for _, o := range b.bids {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	for _, o := range b.asks {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	return orders
}

// OrderBookSnapshot 订单簿快照，用于崩溃恢复
type OrderBookSnapshot struct {
	BaseAsset      string          `json:"baseAsset"`
	QuoteAsset     string          `json:"quoteAsset"`
	Bids           []*Order        `json:"bids"`
	Asks           []*Order        `json:"asks"`
	LastTradeID    int64           `json:"lastTradeId"`
	LastTradePrice decimal.Decimal `json:"lastTradePrice"`
}

// Snapshot 生成订单簿的深拷贝快照
func (b *OrderBook) Snapshot() OrderBookSnapshot {
	return OrderBookSnapshot{
		BaseAsset:      b.baseAsset,
		QuoteAsset:     b.quoteAsset,
		Bids:           copyOrders(b.bids),
		Asks:           copyOrders(b.asks),
		LastTradeID:    b.lastTradeID,
		LastTradePrice: b.lastTradePrice,
	}
}

// NewOrderBookFromSnapshot 从快照重建订单簿
func NewOrderBookFromSnapshot(s OrderBookSnapshot) *OrderBook {
	return &OrderBook{
		baseAsset:      s.BaseAsset,
		quoteAsset:     s.QuoteAsset,
		bids:           copyOrders(s.Bids),
		asks:           copyOrders(s.Asks),
		lastTradeID:    s.LastTradeID,
		lastTradePrice: s.LastTradePrice,
	}
}

func copyOrders(orders []*Order) []*Order {
	out := make([]*Order, len(orders))
	for i, o := range orders {
		c := *o
		out[i] = &c
	}
	return out
}
