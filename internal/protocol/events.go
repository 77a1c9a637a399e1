package protocol

import "encoding/json"

// EventType 持久化事件类型
type EventType string

const (
	EventTradeAdded  EventType = "TRADE_ADDED"
	EventOrderUpdate EventType = "ORDER_UPDATE"
)

// DBEvent 持久化事件。传输为 at-most-once，消费方必须以 upsert 语义应用
type DBEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TradeAddedData 新成交事件
type TradeAddedData struct {
	ID            int64  `json:"id"`
	Market        string `json:"market"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	QuoteQuantity string `json:"quoteQuantity"`
	IsBuyerMaker  bool   `json:"isBuyerMaker"`
	Timestamp     int64  `json:"timestamp"`
}

// OrderUpdateData 订单状态事件，market/price/quantity/side 仅在首次写入时出现
type OrderUpdateData struct {
	OrderID     string `json:"orderId"`
	ExecutedQty string `json:"executedQty"`
	Market      string `json:"market,omitempty"`
	Price       string `json:"price,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
	Side        string `json:"side,omitempty"`
	Status      string `json:"status,omitempty"`
}

// NewDBEvent 构造持久化事件
func NewDBEvent(t EventType, data any) (DBEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return DBEvent{}, err
	}
	return DBEvent{Type: t, Data: raw}, nil
}

// Encode 序列化事件
func (e DBEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeDBEvent 反序列化事件
func DecodeDBEvent(raw []byte) (DBEvent, error) {
	var e DBEvent
	err := json.Unmarshal(raw, &e)
	return e, err
}

// DepthUpdate 深度增量推送。仅包含发生变化的档位，数量为零表示该档位已清空
type DepthUpdate struct {
	Event  string       `json:"e"`
	Market string       `json:"market"`
	Bids   []PriceLevel `json:"bids"`
	Asks   []PriceLevel `json:"asks"`
}

// TradeUpdate 成交推送
type TradeUpdate struct {
	Event        string `json:"e"`
	TradeID      int64  `json:"tradeId"`
	Market       string `json:"market"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
	Timestamp    int64  `json:"timestamp"`
}

// NewDepthUpdate 构造深度增量
func NewDepthUpdate(market string, bids, asks []PriceLevel) DepthUpdate {
	return DepthUpdate{Event: "depth", Market: market, Bids: bids, Asks: asks}
}
