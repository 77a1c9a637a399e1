// Package ws 行情推送的 WebSocket 接口
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wyfcoding/spotexchange/internal/marketstream/application"
	"github.com/wyfcoding/spotexchange/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	// 慢消费者的发送缓冲，满了直接丢弃消息
	sendBuffer = 64
)

// clientRequest 客户端订阅指令
type clientRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

// Server WebSocket 接入层
type Server struct {
	manager  *application.SubscriptionManager
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewServer 创建 WebSocket 服务
func NewServer(manager *application.SubscriptionManager, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics: m,
		logger:  logger.With("module", "ws_server"),
	}
}

// RegisterRoutes 注册路由
func (s *Server) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", s.Handle)
}

// Handle 升级连接并启动读写协程
func (s *Server) Handle(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	s.metrics.WSConnections.Inc()
	s.logger.Info("client connected", "client_id", cl.id, "remote", conn.RemoteAddr())

	go s.writePump(cl)
	go s.readPump(cl)
}

// client 单个连接。Deliver 由广播协程调用，不阻塞
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (c *client) ID() string { return c.id }

func (c *client) Deliver(_ string, payload []byte) {
	select {
	case c.send <- payload:
	default:
		// 缓冲满，丢弃该消息
	}
}

func (s *Server) readPump(cl *client) {
	defer func() {
		s.manager.Drop(cl.id)
		close(cl.send)
		s.metrics.WSConnections.Dec()
		s.logger.Info("client disconnected", "client_id", cl.id)
	}()

	cl.conn.SetReadLimit(4096)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}

		var req clientRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			s.logger.Warn("malformed client request", "client_id", cl.id, "error", err)
			continue
		}

		switch req.Method {
		case "SUBSCRIBE":
			for _, topic := range req.Params {
				s.manager.Subscribe(cl, topic)
			}
		case "UNSUBSCRIBE":
			for _, topic := range req.Params {
				s.manager.Unsubscribe(cl.id, topic)
			}
		default:
			s.logger.Warn("unknown client method", "client_id", cl.id, "method", req.Method)
		}
	}
}

func (s *Server) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
