package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/spotexchange/internal/exchange/domain"
	"github.com/wyfcoding/spotexchange/internal/protocol"
	"github.com/wyfcoding/spotexchange/pkg/metrics"
	"github.com/wyfcoding/spotexchange/pkg/utils"
)

// Options 引擎启动参数
type Options struct {
	// 启动时创建的市场，base_quote 形式
	Markets []string
	// 无快照启动时是否写入演示用种子余额
	SeedBalances bool
	// 快照间隔
	SnapshotInterval time.Duration
}

// MatchingEngine 撮合引擎应用服务。单协程串行处理命令，
// 订单簿与账本只在该协程内被访问，快照在两条命令之间生成
type MatchingEngine struct {
	opts      Options
	books     map[string]*domain.OrderBook
	ledger    *domain.Ledger
	snapshots domain.SnapshotRepository
	source    CommandSource
	replies   ReplySender
	events    EventPusher
	market    MarketPublisher
	trades    TradeStream
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewMatchingEngine 创建撮合引擎。trades 可为 nil（未启用 Kafka 时）
func NewMatchingEngine(
	opts Options,
	snapshots domain.SnapshotRepository,
	source CommandSource,
	replies ReplySender,
	events EventPusher,
	market MarketPublisher,
	trades TradeStream,
	m *metrics.Metrics,
	logger *slog.Logger,
) *MatchingEngine {
	return &MatchingEngine{
		opts:      opts,
		books:     make(map[string]*domain.OrderBook),
		ledger:    domain.NewLedger(),
		snapshots: snapshots,
		source:    source,
		replies:   replies,
		events:    events,
		market:    market,
		trades:    trades,
		metrics:   m,
		logger:    logger.With("module", "matching_engine"),
	}
}

// Bootstrap 初始化引擎状态：优先从快照恢复，否则按配置创建空市场，
// 并在允许时写入演示种子余额
func (e *MatchingEngine) Bootstrap(ctx context.Context) error {
	snap, found, err := e.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if found {
		for _, bs := range snap.OrderBooks {
			book := domain.NewOrderBookFromSnapshot(bs)
			e.books[book.Ticker()] = book
		}
		e.ledger = domain.NewLedgerFromSnapshot(snap.Ledger)
		e.logger.Info("engine state restored from snapshot",
			"taken_at", snap.TakenAt,
			"markets", len(snap.OrderBooks),
			"balances", len(snap.Ledger))
		return nil
	}

	for _, ticker := range e.opts.Markets {
		base, quote, err := domain.SplitMarket(ticker)
		if err != nil {
			return fmt.Errorf("market %q: %w", ticker, err)
		}
		lastPrice := decimal.Zero
		if e.opts.SeedBalances {
			lastPrice = decimal.NewFromInt(1000)
		}
		e.books[ticker] = domain.NewOrderBook(base, quote, lastPrice)
	}

	if e.opts.SeedBalances {
		e.seedDemoBalances()
	}

	e.logger.Info("engine started with fresh state",
		"markets", e.opts.Markets, "seeded", e.opts.SeedBalances)
	return nil
}

// seedDemoBalances 演示环境的初始资金
func (e *MatchingEngine) seedDemoBalances() {
	e.ledger.Credit("user-1", "INR", decimal.NewFromInt(10000))
	e.ledger.Credit("user-1", "TATA", decimal.NewFromInt(100))
	e.ledger.Credit("user-2", "INR", decimal.NewFromInt(5000))
	e.ledger.Credit("user-2", "TATA", decimal.NewFromInt(50))
}

// Run 命令调度循环。退出前落一次最终快照
func (e *MatchingEngine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.SnapshotInterval)
	defer ticker.Stop()

	e.logger.Info("command loop started", "snapshot_interval", e.opts.SnapshotInterval)

	for {
		select {
		case <-ctx.Done():
			e.SaveSnapshot(context.WithoutCancel(ctx))
			e.logger.Info("command loop stopped")
			return ctx.Err()
		case <-ticker.C:
			e.SaveSnapshot(ctx)
		default:
		}

		env, ok, err := e.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			e.logger.Error("failed to fetch command", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if !ok {
			continue
		}

		e.Process(ctx, env)
	}
}

// Process 处理单条命令。处理器的 panic 在此被隔离，
// 一条损坏的命令不会中断调度循环
func (e *MatchingEngine) Process(ctx context.Context, env protocol.Envelope) {
	start := time.Now()
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			e.logger.Error("command handler panicked",
				"type", env.Type, "request_id", env.RequestID, "panic", r)
		}
		e.metrics.CommandsTotal.WithLabelValues(string(env.Type), outcome).Inc()
		e.metrics.CommandDuration.Observe(time.Since(start).Seconds())
		e.metrics.OrdersResting.Set(float64(e.restingOrders()))
	}()

	var err error
	switch env.Type {
	case protocol.CreateOrder:
		err = e.handleCreateOrder(ctx, env)
	case protocol.CancelOrder:
		err = e.handleCancelOrder(ctx, env)
	case protocol.GetDepth:
		err = e.handleGetDepth(ctx, env)
	case protocol.GetOpenOrders:
		err = e.handleGetOpenOrders(ctx, env)
	case protocol.GetBalance:
		err = e.handleGetBalance(ctx, env)
	case protocol.OnRamp:
		err = e.handleOnRamp(ctx, env)
	default:
		e.logger.Warn("unknown command type", "type", env.Type, "request_id", env.RequestID)
		return
	}

	if err != nil {
		outcome = "error"
		e.logger.Error("command failed",
			"type", env.Type, "request_id", env.RequestID, "error", err)
	}
}

func (e *MatchingEngine) restingOrders() int {
	total := 0
	for _, book := range e.books {
		total += book.RestingOrders()
	}
	return total
}

// handleCreateOrder 下单：冻结资金、撮合、结算、发布事件与行情、回复。
// 任何校验或资金失败都转换为零值的 ORDER_CANCELLED 回复
func (e *MatchingEngine) handleCreateOrder(ctx context.Context, env protocol.Envelope) error {
	data := env.Data

	book, ok := e.books[data.Market]
	if !ok {
		return e.rejectOrder(ctx, env.RequestID, "", fmt.Errorf("%w: %s", domain.ErrMarketNotFound, data.Market))
	}
	base, quote := book.BaseAsset(), book.QuoteAsset()

	side := domain.Side(data.Side)
	if !side.Valid() {
		return e.rejectOrder(ctx, env.RequestID, "", fmt.Errorf("invalid side %q", data.Side))
	}
	price, err := decimal.NewFromString(data.Price)
	if err != nil || !price.IsPositive() {
		return e.rejectOrder(ctx, env.RequestID, "", fmt.Errorf("invalid price %q", data.Price))
	}
	qty, err := decimal.NewFromString(data.Quantity)
	if err != nil || !qty.IsPositive() {
		return e.rejectOrder(ctx, env.RequestID, "", fmt.Errorf("invalid quantity %q", data.Quantity))
	}

	// 买单冻结计价资产 price*qty，卖单冻结基础资产 qty
	if side == domain.SideBuy {
		err = e.ledger.Lock(data.UserID, quote, price.Mul(qty))
	} else {
		err = e.ledger.Lock(data.UserID, base, qty)
	}
	if err != nil {
		return e.rejectOrder(ctx, env.RequestID, "", err)
	}

	order := &domain.Order{
		OrderID:  utils.NewOrderID(),
		UserID:   data.UserID,
		Side:     side,
		Price:    price,
		Quantity: qty,
	}

	executed, fills := book.AddOrder(order)

	for _, fill := range fills {
		if err := e.ledger.SettleFill(data.UserID, fill.MakerUserID, base, quote,
			fill.Quantity, fill.Price, side); err != nil {
			// 账本不变量被破坏，属于不可恢复缺陷，让 Process 的 recover 记录现场
			panic(fmt.Sprintf("settlement failure on %s: %v", data.Market, err))
		}
	}

	// 买方按限价冻结但按挂单价成交，已成交部分的差额退回可用
	if side == domain.SideBuy && executed.IsPositive() {
		spent := decimal.Zero
		for _, fill := range fills {
			spent = spent.Add(fill.Quantity.Mul(fill.Price))
		}
		if improvement := executed.Mul(price).Sub(spent); improvement.IsPositive() {
			if err := e.ledger.Release(data.UserID, quote, improvement); err != nil {
				panic(fmt.Sprintf("price improvement release on %s: %v", data.Market, err))
			}
		}
	}

	e.publishTradeEvents(ctx, book, order, fills)
	e.publishOrderEvents(ctx, data.Market, order, fills)
	e.publishDepthDelta(ctx, book, side, fills, []decimal.Decimal{price})

	e.metrics.TradesTotal.Add(float64(len(fills)))

	fillInfos := make([]protocol.FillInfo, 0, len(fills))
	for _, fill := range fills {
		fillInfos = append(fillInfos, protocol.FillInfo{
			TradeID:  fill.TradeID,
			Price:    fill.Price.String(),
			Quantity: fill.Quantity.String(),
		})
	}

	e.logger.Info("order placed",
		"market", data.Market, "order_id", order.OrderID, "side", side,
		"price", price, "quantity", qty, "executed", executed, "fills", len(fills))

	return e.reply(ctx, env.RequestID, protocol.ReplyOrderPlaced, protocol.OrderPlacedPayload{
		OrderID:     order.OrderID,
		ExecutedQty: executed.String(),
		Fills:       fillInfos,
	})
}

// rejectOrder 下单失败的否定回复：零值 ORDER_CANCELLED
func (e *MatchingEngine) rejectOrder(ctx context.Context, requestID, orderID string, cause error) error {
	e.logger.Warn("order rejected", "request_id", requestID, "reason", cause)
	return e.reply(ctx, requestID, protocol.ReplyOrderCancelled, protocol.OrderCancelledPayload{
		OrderID:      orderID,
		ExecutedQty:  "0",
		RemainingQty: "0",
	})
}

// handleCancelOrder 撤单：从簿中移除、解冻与剩余数量对应的资金、
// 发布订单事件与深度增量、回复
func (e *MatchingEngine) handleCancelOrder(ctx context.Context, env protocol.Envelope) error {
	data := env.Data

	book, ok := e.books[data.Market]
	if !ok {
		return e.rejectOrder(ctx, env.RequestID, data.OrderID,
			fmt.Errorf("%w: %s", domain.ErrMarketNotFound, data.Market))
	}

	order, found := book.Cancel(data.OrderID)
	if !found {
		return e.rejectOrder(ctx, env.RequestID, data.OrderID, domain.ErrOrderNotFound)
	}

	remaining := order.Remaining()
	if order.Side == domain.SideBuy {
		err := e.ledger.Release(order.UserID, book.QuoteAsset(), remaining.Mul(order.Price))
		if err != nil {
			panic(fmt.Sprintf("cancel release on %s: %v", data.Market, err))
		}
	} else {
		err := e.ledger.Release(order.UserID, book.BaseAsset(), remaining)
		if err != nil {
			panic(fmt.Sprintf("cancel release on %s: %v", data.Market, err))
		}
	}

	e.pushDBEvent(ctx, protocol.EventOrderUpdate, protocol.OrderUpdateData{
		OrderID:     order.OrderID,
		ExecutedQty: order.Filled.String(),
		Status:      "CANCELLED",
	})

	e.publishDepthDelta(ctx, book, order.Side, nil, []decimal.Decimal{order.Price})

	e.logger.Info("order cancelled",
		"market", data.Market, "order_id", order.OrderID, "remaining", remaining)

	return e.reply(ctx, env.RequestID, protocol.ReplyOrderCancelled, protocol.OrderCancelledPayload{
		OrderID:      order.OrderID,
		ExecutedQty:  order.Filled.String(),
		RemainingQty: remaining.String(),
	})
}

// handleGetDepth 深度查询。未知市场回复空深度
func (e *MatchingEngine) handleGetDepth(ctx context.Context, env protocol.Envelope) error {
	payload := protocol.DepthPayload{Bids: []protocol.PriceLevel{}, Asks: []protocol.PriceLevel{}}

	if book, ok := e.books[env.Data.Market]; ok {
		bids, asks := book.Depth()
		payload.Bids = toPriceLevels(bids)
		payload.Asks = toPriceLevels(asks)
	}

	return e.reply(ctx, env.RequestID, protocol.ReplyDepth, payload)
}

// handleGetOpenOrders 用户挂单查询。未知市场回复空列表
func (e *MatchingEngine) handleGetOpenOrders(ctx context.Context, env protocol.Envelope) error {
	payload := protocol.OpenOrdersPayload{Orders: []protocol.OpenOrderInfo{}}

	if book, ok := e.books[env.Data.Market]; ok {
		for _, o := range book.OpenOrders(env.Data.UserID) {
			payload.Orders = append(payload.Orders, protocol.OpenOrderInfo{
				OrderID:  o.OrderID,
				Market:   env.Data.Market,
				Side:     string(o.Side),
				Price:    o.Price.String(),
				Quantity: o.Quantity.String(),
				Filled:   o.Filled.String(),
				UserID:   o.UserID,
			})
		}
	}

	return e.reply(ctx, env.RequestID, protocol.ReplyOpenOrders, payload)
}

// handleGetBalance 余额查询。未知用户回复空映射
func (e *MatchingEngine) handleGetBalance(ctx context.Context, env protocol.Envelope) error {
	payload := protocol.BalancePayload{}
	for asset, bal := range e.ledger.Balances(env.Data.UserID) {
		payload[asset] = protocol.AssetBalance{
			Available: bal.Available.String(),
			Locked:    bal.Locked.String(),
		}
	}
	return e.reply(ctx, env.RequestID, protocol.ReplyBalance, payload)
}

// handleOnRamp 入金：充入可用余额并回复。金额非法时回复原余额
func (e *MatchingEngine) handleOnRamp(ctx context.Context, env protocol.Envelope) error {
	data := env.Data

	txnID := data.TxnID
	if txnID == "" {
		txnID = uuid.NewString()
	}

	amount, err := decimal.NewFromString(data.Amount)
	if err != nil || !amount.IsPositive() {
		e.logger.Warn("on-ramp rejected",
			"user_id", data.UserID, "asset", data.Asset, "amount", data.Amount)
		return e.reply(ctx, env.RequestID, protocol.ReplyOnRamp, protocol.OnRampPayload{
			UserID:    data.UserID,
			Asset:     data.Asset,
			Amount:    "0",
			Available: e.ledger.Balance(data.UserID, data.Asset).Available.String(),
			TxnID:     txnID,
		})
	}

	available := e.ledger.Credit(data.UserID, data.Asset, amount)

	e.logger.Info("on-ramp credited",
		"user_id", data.UserID, "asset", data.Asset, "amount", amount, "txn_id", txnID)

	return e.reply(ctx, env.RequestID, protocol.ReplyOnRamp, protocol.OnRampPayload{
		UserID:    data.UserID,
		Asset:     data.Asset,
		Amount:    amount.String(),
		Available: available.String(),
		TxnID:     txnID,
	})
}

// publishTradeEvents 每笔成交：持久化事件、行情推送，以及可选的 Kafka 事件流
func (e *MatchingEngine) publishTradeEvents(ctx context.Context, book *domain.OrderBook, taker *domain.Order, fills []domain.Fill) {
	market := book.Ticker()
	now := time.Now().UnixMilli()

	for _, fill := range fills {
		trade := protocol.TradeAddedData{
			ID:            fill.TradeID,
			Market:        market,
			Price:         fill.Price.String(),
			Quantity:      fill.Quantity.String(),
			QuoteQuantity: fill.Quantity.Mul(fill.Price).String(),
			IsBuyerMaker:  taker.Side == domain.SideSell,
			Timestamp:     now,
		}

		e.pushDBEvent(ctx, protocol.EventTradeAdded, trade)

		update := protocol.TradeUpdate{
			Event:        "trade",
			TradeID:      fill.TradeID,
			Market:       market,
			Price:        trade.Price,
			Quantity:     trade.Quantity,
			IsBuyerMaker: trade.IsBuyerMaker,
			Timestamp:    now,
		}
		if err := e.market.PublishTrade(ctx, market, update); err != nil {
			e.logger.Error("failed to publish trade update", "market", market, "error", err)
		} else {
			e.metrics.MarketUpdatesTotal.Inc()
		}

		if e.trades != nil {
			if err := e.trades.SendTrade(ctx, trade); err != nil {
				e.logger.Error("failed to stream trade", "market", market, "error", err)
			}
		}
	}
}

// publishOrderEvents taker 订单写入全量字段，每个 maker 写入累计成交量
func (e *MatchingEngine) publishOrderEvents(ctx context.Context, market string, taker *domain.Order, fills []domain.Fill) {
	e.pushDBEvent(ctx, protocol.EventOrderUpdate, protocol.OrderUpdateData{
		OrderID:     taker.OrderID,
		ExecutedQty: taker.Filled.String(),
		Market:      market,
		Price:       taker.Price.String(),
		Quantity:    taker.Quantity.String(),
		Side:        string(taker.Side),
	})

	for _, fill := range fills {
		e.pushDBEvent(ctx, protocol.EventOrderUpdate, protocol.OrderUpdateData{
			OrderID:     fill.MakerOrderID,
			ExecutedQty: fill.MakerFilled.String(),
		})
	}
}

// publishDepthDelta 发布深度增量：对手方发生成交的价格档位与本方 taker 限价档位。
// 档位数量为零表示该档位已被吃空
func (e *MatchingEngine) publishDepthDelta(ctx context.Context, book *domain.OrderBook, takerSide domain.Side, fills []domain.Fill, ownLevels []decimal.Decimal) {
	oppPrices := distinctFillPrices(fills)
	if len(oppPrices) == 0 && len(ownLevels) == 0 {
		return
	}

	opposite := make([]protocol.PriceLevel, 0, len(oppPrices))
	for _, price := range oppPrices {
		qty := book.LevelQuantity(takerSide.Opposite(), price)
		opposite = append(opposite, protocol.PriceLevel{price.String(), qty.String()})
	}

	own := make([]protocol.PriceLevel, 0, len(ownLevels))
	for _, price := range ownLevels {
		qty := book.LevelQuantity(takerSide, price)
		own = append(own, protocol.PriceLevel{price.String(), qty.String()})
	}

	var update protocol.DepthUpdate
	if takerSide == domain.SideBuy {
		update = protocol.NewDepthUpdate(book.Ticker(), own, opposite)
	} else {
		update = protocol.NewDepthUpdate(book.Ticker(), opposite, own)
	}

	if err := e.market.PublishDepth(ctx, book.Ticker(), update); err != nil {
		e.logger.Error("failed to publish depth update", "market", book.Ticker(), "error", err)
		return
	}
	e.metrics.MarketUpdatesTotal.Inc()
}

func distinctFillPrices(fills []domain.Fill) []decimal.Decimal {
	var prices []decimal.Decimal
	for _, fill := range fills {
		seen := false
		for _, p := range prices {
			if p.Equal(fill.Price) {
				seen = true
				break
			}
		}
		if !seen {
			prices = append(prices, fill.Price)
		}
	}
	return prices
}

func toPriceLevels(levels []domain.DepthLevel) []protocol.PriceLevel {
	out := make([]protocol.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, protocol.PriceLevel{l.Price.String(), l.Quantity.String()})
	}
	return out
}

func (e *MatchingEngine) pushDBEvent(ctx context.Context, t protocol.EventType, data any) {
	event, err := protocol.NewDBEvent(t, data)
	if err != nil {
		e.logger.Error("failed to encode db event", "type", t, "error", err)
		return
	}
	if err := e.events.PushEvent(ctx, event); err != nil {
		e.logger.Error("failed to push db event", "type", t, "error", err)
		return
	}
	e.metrics.DBEventsTotal.WithLabelValues(string(t)).Inc()
}

func (e *MatchingEngine) reply(ctx context.Context, requestID string, t protocol.ReplyType, payload any) error {
	rep, err := protocol.NewReply(t, payload)
	if err != nil {
		return fmt.Errorf("encode reply %s: %w", t, err)
	}
	if err := e.replies.SendReply(ctx, requestID, rep); err != nil {
		return fmt.Errorf("send reply %s: %w", t, err)
	}
	return nil
}

// SaveSnapshot 在两条命令之间生成并持久化全量快照
func (e *MatchingEngine) SaveSnapshot(ctx context.Context) {
	start := time.Now()

	snap := &domain.EngineSnapshot{
		TakenAt:    time.Now(),
		OrderBooks: make([]domain.OrderBookSnapshot, 0, len(e.books)),
		Ledger:     e.ledger.Snapshot(),
	}
	for _, book := range e.books {
		snap.OrderBooks = append(snap.OrderBooks, book.Snapshot())
	}

	if err := e.snapshots.Save(ctx, snap); err != nil {
		e.metrics.SnapshotFailures.Inc()
		e.logger.Error("failed to save snapshot", "error", err)
		return
	}

	e.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
}
