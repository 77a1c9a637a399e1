// Package messaging 引擎的 Kafka 成交事件流
package messaging

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wyfcoding/spotexchange/internal/protocol"
	"github.com/wyfcoding/spotexchange/pkg/mq"
)

// KafkaTradeStream 将每笔成交写入 Kafka，按市场分区保证同市场内有序
type KafkaTradeStream struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaTradeStream 创建成交事件流
func NewKafkaTradeStream(producer *mq.KafkaProducer, topic string) *KafkaTradeStream {
	return &KafkaTradeStream{producer: producer, topic: topic}
}

// SendTrade 发送单笔成交，key 为市场标识
func (s *KafkaTradeStream) SendTrade(ctx context.Context, trade protocol.TradeAddedData) error {
	if err := s.producer.SendMessage(ctx, s.topic, trade.Market, trade); err != nil {
		return fmt.Errorf("send trade %s to kafka: %w", strconv.FormatInt(trade.ID, 10), err)
	}
	return nil
}
