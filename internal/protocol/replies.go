package protocol

import "encoding/json"

// ReplyType 回复类型
type ReplyType string

const (
	ReplyOrderPlaced    ReplyType = "ORDER_PLACED"
	ReplyOrderCancelled ReplyType = "ORDER_CANCELLED"
	ReplyDepth          ReplyType = "DEPTH"
	ReplyOpenOrders     ReplyType = "OPEN_ORDERS"
	ReplyBalance        ReplyType = "BALANCE"
	ReplyOnRamp         ReplyType = "ON_RAMP"
)

// Reply 引擎对单条命令的回复，payload 按 type 解释
type Reply struct {
	Type    ReplyType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// FillInfo 单笔成交在回复中的表示
type FillInfo struct {
	TradeID  int64  `json:"tradeId"`
	Price    string `json:"price"`
	Quantity string `json:"qty"`
}

// OrderPlacedPayload 下单成功回复
type OrderPlacedPayload struct {
	OrderID     string     `json:"orderId"`
	ExecutedQty string     `json:"executedQty"`
	Fills       []FillInfo `json:"fills"`
}

// OrderCancelledPayload 撤单回复，也用于下单失败时的零值回复
type OrderCancelledPayload struct {
	OrderID      string `json:"orderId"`
	ExecutedQty  string `json:"executedQty"`
	RemainingQty string `json:"remainingQty"`
}

// PriceLevel 深度档位：[价格, 数量]
type PriceLevel [2]string

// DepthPayload 市场深度回复
type DepthPayload struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

// OpenOrderInfo 挂单在回复中的表示
type OpenOrderInfo struct {
	OrderID  string `json:"orderId"`
	Market   string `json:"market"`
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	Filled   string `json:"filled"`
	UserID   string `json:"userId"`
}

// OpenOrdersPayload 挂单列表回复
type OpenOrdersPayload struct {
	Orders []OpenOrderInfo `json:"orders"`
}

// AssetBalance 单一资产余额
type AssetBalance struct {
	Available string `json:"available"`
	Locked    string `json:"locked"`
}

// BalancePayload 用户余额回复，key 为资产代码
type BalancePayload map[string]AssetBalance

// OnRampPayload 入金回复
type OnRampPayload struct {
	UserID    string `json:"userId"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Available string `json:"available"`
	TxnID     string `json:"txnId"`
}

// NewReply 构造回复，payload 序列化失败时返回错误
func NewReply(t ReplyType, payload any) (Reply, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Type: t, Payload: data}, nil
}

// Encode 序列化回复
func (r Reply) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeReply 反序列化回复
func DecodeReply(raw []byte) (Reply, error) {
	var r Reply
	err := json.Unmarshal(raw, &r)
	return r, err
}
