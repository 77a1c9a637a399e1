// Package domain 现货撮合的领域模型：订单簿、资金账本与快照
package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite 返回对手方向
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid 校验方向取值
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Order 订单。进入订单簿后由撮合过程原地累加 Filled，
// Filled == Quantity 时从簿中移除
type Order struct {
	OrderID  string          `json:"orderId"`
	UserID   string          `json:"userId"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Filled   decimal.Decimal `json:"filled"`
}

// Remaining 未成交数量
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.Filled)
}

// Fill 单笔成交，创建后不可变。价格始终取挂单方（maker）价格。
// MakerFilled 为挂单方在本笔成交后的累计成交量，供订单状态事件做幂等覆盖
type Fill struct {
	TradeID      int64           `json:"tradeId"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"qty"`
	TakerOrderID string          `json:"takerOrderId"`
	MakerOrderID string          `json:"makerOrderId"`
	MakerUserID  string          `json:"makerUserId"`
	MakerFilled  decimal.Decimal `json:"makerFilled"`
}

// SplitMarket 将 base_quote 形式的市场标识拆分为基础资产与计价资产
func SplitMarket(market string) (base, quote string, err error) {
	parts := strings.Split(market, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrInvalidMarket
	}
	return parts[0], parts[1], nil
}
