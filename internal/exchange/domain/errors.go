package domain

import "errors"

// 领域错误。命令处理器将其转换为否定回复，绝不向调度循环外传播
var (
	// ErrInsufficientFunds 可用余额不足以冻结所需金额
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientLocked 冻结余额不足以完成结算或解冻（内部不变量被破坏）
	ErrInsufficientLocked = errors.New("insufficient locked balance")
	// ErrMarketNotFound 市场没有对应的订单簿
	ErrMarketNotFound = errors.New("market not found")
	// ErrOrderNotFound 订单不在订单簿中（已成交或未知 ID）
	ErrOrderNotFound = errors.New("order not found")
	// ErrBalanceNotFound 用户没有余额记录
	ErrBalanceNotFound = errors.New("balance not found")
	// ErrSelfTrade 订单与同一用户的挂单成交（撮合中直接跳过，此错误仅用于校验）
	ErrSelfTrade = errors.New("self trade not allowed")
	// ErrInvalidMarket 市场标识不是 base_quote 形式
	ErrInvalidMarket = errors.New("invalid market symbol")
)
