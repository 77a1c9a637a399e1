// Package application 行情推送的订阅管理
package application

import (
	"log/slog"
	"sync"

	"github.com/wyfcoding/spotexchange/pkg/metrics"
)

// Subscriber 行情订阅者。Deliver 不得阻塞，慢消费者自行丢弃
type Subscriber interface {
	ID() string
	Deliver(topic string, payload []byte)
}

// SubscriptionManager 管理订阅关系并向订阅者扇出行情。
// 与引擎不同，这里存在并发：订阅/退订来自连接协程，广播来自 Redis 转发协程
type SubscriptionManager struct {
	mu sync.RWMutex
	// topic -> subscriberID -> Subscriber
	topics map[string]map[string]Subscriber
	// subscriberID -> 已订阅的 topic 集合，便于断开时清理
	reverse map[string]map[string]struct{}
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSubscriptionManager 创建订阅管理器
func NewSubscriptionManager(m *metrics.Metrics, logger *slog.Logger) *SubscriptionManager {
	return &SubscriptionManager{
		topics:  make(map[string]map[string]Subscriber),
		reverse: make(map[string]map[string]struct{}),
		metrics: m,
		logger:  logger.With("module", "subscription_manager"),
	}
}

// Subscribe 订阅主题，重复订阅是幂等的
func (s *SubscriptionManager) Subscribe(sub Subscriber, topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.topics[topic] == nil {
		s.topics[topic] = make(map[string]Subscriber)
	}
	s.topics[topic][sub.ID()] = sub

	if s.reverse[sub.ID()] == nil {
		s.reverse[sub.ID()] = make(map[string]struct{})
	}
	s.reverse[sub.ID()][topic] = struct{}{}

	s.logger.Debug("subscribed", "subscriber", sub.ID(), "topic", topic)
}

// Unsubscribe 退订主题
func (s *SubscriptionManager) Unsubscribe(subscriberID, topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(subscriberID, topic)
}

// Drop 移除订阅者的全部订阅（连接断开时调用）
func (s *SubscriptionManager) Drop(subscriberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for topic := range s.reverse[subscriberID] {
		s.remove(subscriberID, topic)
	}
}

func (s *SubscriptionManager) remove(subscriberID, topic string) {
	if subs, ok := s.topics[topic]; ok {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(s.topics, topic)
		}
	}
	if topics, ok := s.reverse[subscriberID]; ok {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(s.reverse, subscriberID)
		}
	}
}

// Broadcast 向主题的全部订阅者投递消息，返回投递数量
func (s *SubscriptionManager) Broadcast(topic string, payload []byte) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := s.topics[topic]
	for _, sub := range subs {
		sub.Deliver(topic, payload)
	}
	if len(subs) > 0 {
		s.metrics.MarketUpdatesTotal.Inc()
	}
	return len(subs)
}

// Subscriptions 订阅者当前订阅的主题
func (s *SubscriptionManager) Subscriptions(subscriberID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var topics []string
	for topic := range s.reverse[subscriberID] {
		topics = append(topics, topic)
	}
	return topics
}
