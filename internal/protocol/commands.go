// Package protocol 定义网关、撮合引擎、DB writer 与行情推送之间的消息契约。
// 所有跨进程消息均以 JSON 编码经由 Redis 列表与发布/订阅传递。
package protocol

import "encoding/json"

// CommandType 命令类型
type CommandType string

const (
	CreateOrder   CommandType = "CREATE_ORDER"
	CancelOrder   CommandType = "CANCEL_ORDER"
	GetOpenOrders CommandType = "GET_OPEN_ORDERS"
	GetDepth      CommandType = "GET_DEPTH"
	GetBalance    CommandType = "GET_BALANCE"
	OnRamp        CommandType = "ON_RAMP"
)

// 传输通道命名
const (
	// CommandQueue 命令队列：网关 LPUSH，引擎 BRPOP（唯一消费者）
	CommandQueue = "exchange:commands"
	// EventQueue 持久化事件队列：引擎 LPUSH，dbwriter BRPOP
	EventQueue = "exchange:db_events"
)

// DepthTopic 市场深度增量频道名
func DepthTopic(market string) string {
	return "depth@" + market
}

// TradeTopic 市场成交频道名
func TradeTopic(market string) string {
	return "trade@" + market
}

// CommandData 命令负载。不同命令只使用其中一部分字段，未用字段省略
type CommandData struct {
	Market   string `json:"market,omitempty"`
	Price    string `json:"price,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	Side     string `json:"side,omitempty"`
	UserID   string `json:"userId,omitempty"`
	OrderID  string `json:"orderId,omitempty"`
	Asset    string `json:"asset,omitempty"`
	Amount   string `json:"amount,omitempty"`
	TxnID    string `json:"txnId,omitempty"`
}

// Envelope 命令信封。requestId 由调用方生成，引擎以其为回复频道名
type Envelope struct {
	RequestID string      `json:"requestId"`
	Type      CommandType `json:"type"`
	Data      CommandData `json:"data"`
}

// Encode 序列化信封
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope 反序列化信封
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(raw, &e)
	return e, err
}
