package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Balance 用户在单一资产上的资金状态
type Balance struct {
	Available decimal.Decimal `json:"available"`
	Locked    decimal.Decimal `json:"locked"`
}

// Ledger 内存资金账本：userID -> asset -> Balance。
// 与订单簿一样仅由引擎协程访问，无内部锁
type Ledger struct {
	balances map[string]map[string]*Balance
}

// NewLedger 创建空账本
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]map[string]*Balance)}
}

func (l *Ledger) get(userID, asset string) *Balance {
	assets, ok := l.balances[userID]
	if !ok {
		assets = make(map[string]*Balance)
		l.balances[userID] = assets
	}
	bal, ok := assets[asset]
	if !ok {
		bal = &Balance{Available: decimal.Zero, Locked: decimal.Zero}
		assets[asset] = bal
	}
	return bal
}

// Credit 向可用余额充值，余额条目不存在时自动创建
func (l *Ledger) Credit(userID, asset string, amount decimal.Decimal) decimal.Decimal {
	bal := l.get(userID, asset)
	bal.Available = bal.Available.Add(amount)
	return bal.Available
}

// Lock 将可用余额转入锁定。余额不足时返回 ErrInsufficientFunds 且不做任何修改
func (l *Ledger) Lock(userID, asset string, amount decimal.Decimal) error {
	assets, ok := l.balances[userID]
	if !ok {
		return fmt.Errorf("lock %s %s for user %s: %w", amount, asset, userID, ErrInsufficientFunds)
	}
	bal, ok := assets[asset]
	if !ok || bal.Available.LessThan(amount) {
		return fmt.Errorf("lock %s %s for user %s: %w", amount, asset, userID, ErrInsufficientFunds)
	}
	bal.Available = bal.Available.Sub(amount)
	bal.Locked = bal.Locked.Add(amount)
	return nil
}

// Release 将锁定余额退回可用。锁定量不足视为账本状态损坏，返回错误且不做修改
func (l *Ledger) Release(userID, asset string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	assets, ok := l.balances[userID]
	if !ok {
		return fmt.Errorf("release %s %s for user %s: %w", amount, asset, userID, ErrBalanceNotFound)
	}
	bal, ok := assets[asset]
	if !ok {
		return fmt.Errorf("release %s %s for user %s: %w", amount, asset, userID, ErrBalanceNotFound)
	}
	if bal.Locked.LessThan(amount) {
		return fmt.Errorf("release %s %s for user %s (locked %s): %w",
			amount, asset, userID, bal.Locked, ErrInsufficientLocked)
	}
	bal.Locked = bal.Locked.Sub(amount)
	bal.Available = bal.Available.Add(amount)
	return nil
}

// SettleFill 结算一笔成交：成对划转两侧资金，保证每种资产总量守恒。
// 买方（无论 taker 还是 maker）以锁定的计价资产换取基础资产，
// 卖方以锁定的基础资产换取计价资产；成交额按挂单价计算
func (l *Ledger) SettleFill(takerUserID, makerUserID string, baseAsset, quoteAsset string,
	qty, price decimal.Decimal, takerSide Side) error {

	buyer, seller := takerUserID, makerUserID
	if takerSide == SideSell {
		buyer, seller = makerUserID, takerUserID
	}

	quoteAmount := qty.Mul(price)

	buyerQuote := l.get(buyer, quoteAsset)
	if buyerQuote.Locked.LessThan(quoteAmount) {
		return fmt.Errorf("settle: buyer %s locked %s %s short of %s: %w",
			buyer, buyerQuote.Locked, quoteAsset, quoteAmount, ErrInsufficientLocked)
	}
	sellerBase := l.get(seller, baseAsset)
	if sellerBase.Locked.LessThan(qty) {
		return fmt.Errorf("settle: seller %s locked %s %s short of %s: %w",
			seller, sellerBase.Locked, baseAsset, qty, ErrInsufficientLocked)
	}

	// 计价资产：买方锁定 -> 卖方可用
	buyerQuote.Locked = buyerQuote.Locked.Sub(quoteAmount)
	l.get(seller, quoteAsset).Available = l.get(seller, quoteAsset).Available.Add(quoteAmount)

	// 基础资产：卖方锁定 -> 买方可用
	sellerBase.Locked = sellerBase.Locked.Sub(qty)
	l.get(buyer, baseAsset).Available = l.get(buyer, baseAsset).Available.Add(qty)

	return nil
}

// Balances 用户全部资产余额的拷贝。用户不存在时返回空映射
func (l *Ledger) Balances(userID string) map[string]Balance {
	out := make(map[string]Balance)
	for asset, bal := range l.balances[userID] {
		out[asset] = *bal
	}
	return out
}

// Balance 指定用户指定资产的余额拷贝
func (l *Ledger) Balance(userID, asset string) Balance {
	assets, ok := l.balances[userID]
	if !ok {
		return Balance{Available: decimal.Zero, Locked: decimal.Zero}
	}
	bal, ok := assets[asset]
	if !ok {
		return Balance{Available: decimal.Zero, Locked: decimal.Zero}
	}
	return *bal
}

// TotalSupply 单一资产在全账本的总量（可用+锁定），用于守恒校验
func (l *Ledger) TotalSupply(asset string) decimal.Decimal {
	total := decimal.Zero
	for _, assets := range l.balances {
		if bal, ok := assets[asset]; ok {
			total = total.Add(bal.Available).Add(bal.Locked)
		}
	}
	return total
}

// LedgerEntry 账本快照中的一条余额记录
type LedgerEntry struct {
	UserID    string          `json:"userId"`
	Asset     string          `json:"asset"`
	Available decimal.Decimal `json:"available"`
	Locked    decimal.Decimal `json:"locked"`
}

// Snapshot 导出账本全部条目，按 (userID, asset) 排序以保证快照稳定
func (l *Ledger) Snapshot() []LedgerEntry {
	var entries []LedgerEntry
	for userID, assets := range l.balances {
		for asset, bal := range assets {
			entries = append(entries, LedgerEntry{
				UserID:    userID,
				Asset:     asset,
				Available: bal.Available,
				Locked:    bal.Locked,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UserID != entries[j].UserID {
			return entries[i].UserID < entries[j].UserID
		}
		return entries[i].Asset < entries[j].Asset
	})
	return entries
}

// NewLedgerFromSnapshot 从快照条目重建账本
func NewLedgerFromSnapshot(entries []LedgerEntry) *Ledger {
	l := NewLedger()
	for _, e := range entries {
		bal := l.get(e.UserID, e.Asset)
		bal.Available = e.Available
		bal.Locked = e.Locked
	}
	return l
}
