package domain

import (
	"context"
	"time"
)

// EngineSnapshot 引擎全量状态：全部订单簿与资金账本。
// 快照在两次命令之间生成，因而天然是一致的
type EngineSnapshot struct {
	TakenAt    time.Time           `json:"takenAt"`
	OrderBooks []OrderBookSnapshot `json:"orderBooks"`
	Ledger     []LedgerEntry       `json:"ledger"`
}

// SnapshotRepository 快照存取接口
type SnapshotRepository interface {
	// Save 原子地持久化快照，新快照完全替换旧快照
	Save(ctx context.Context, snapshot *EngineSnapshot) error
	// Load 读取最近一次快照；不存在时 found 为 false 且无错误
	Load(ctx context.Context) (snapshot *EngineSnapshot, found bool, err error)
}
