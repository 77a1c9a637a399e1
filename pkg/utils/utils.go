// Package utils 提供 ID 生成 / retry 等通用工具
package utils

import (
	"crypto/rand"
	"math/big"
	"time"
)

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandString 生成指定长度的随机字符串，用于订单 ID 与请求 ID
func RandString(length int) string {
	b := make([]byte, length)
	max := big.NewInt(int64(len(idCharset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand 不可用时回退到时间种子
			b[i] = idCharset[time.Now().UnixNano()%int64(len(idCharset))]
			continue
		}
		b[i] = idCharset[n.Int64()]
	}
	return string(b)
}

// NewOrderID 生成订单 ID
func NewOrderID() string {
	return RandString(26)
}

// NewRequestID 生成请求关联 ID
func NewRequestID() string {
	return RandString(26)
}

// Retry 以固定间隔重试 fn，全部失败时返回最后一次错误
func Retry(maxAttempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < maxAttempts-1 {
			time.Sleep(delay)
		}
	}
	return lastErr
}
