// Package http 网关的 HTTP 接口
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/spotexchange/internal/gateway/application"
)

// 支持的 K 线窗口
var klineIntervals = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"1d":  24 * time.Hour,
}

type GatewayHandler struct {
	service *application.GatewayService
}

func NewGatewayHandler(service *application.GatewayService) *GatewayHandler {
	return &GatewayHandler{service: service}
}

func (h *GatewayHandler) RegisterRoutes(r *gin.RouterGroup) {
	v1 := r.Group("/v1")
	{
		v1.POST("/order", h.PlaceOrder)
		v1.DELETE("/order", h.CancelOrder)
		v1.GET("/order/open", h.OpenOrders)
		v1.GET("/depth", h.GetDepth)
		v1.GET("/balance", h.GetBalance)
		v1.POST("/onramp", h.OnRamp)
		v1.GET("/trades", h.GetTrades)
		v1.GET("/klines", h.GetKlines)
	}
}

type placeOrderRequest struct {
	Market   string `json:"market" binding:"required"`
	Price    string `json:"price" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
	Side     string `json:"side" binding:"required"`
	UserID   string `json:"userId" binding:"required"`
}

func (h *GatewayHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.PlaceOrder(c.Request.Context(),
		req.Market, req.Price, req.Quantity, req.Side, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !result.Accepted {
		c.JSON(http.StatusUnprocessableEntity, result.Rejected)
		return
	}
	c.JSON(http.StatusOK, result.Placed)
}

type cancelOrderRequest struct {
	Market  string `json:"market" binding:"required"`
	OrderID string `json:"orderId" binding:"required"`
}

func (h *GatewayHandler) CancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := h.service.CancelOrder(c.Request.Context(), req.Market, req.OrderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *GatewayHandler) OpenOrders(c *gin.Context) {
	market := c.Query("market")
	userID := c.Query("userId")
	if market == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market and userId are required"})
		return
	}

	payload, err := h.service.OpenOrders(c.Request.Context(), market, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *GatewayHandler) GetDepth(c *gin.Context) {
	market := c.Query("market")
	if market == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market is required"})
		return
	}

	payload, err := h.service.Depth(c.Request.Context(), market)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *GatewayHandler) GetBalance(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	payload, err := h.service.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

type onRampRequest struct {
	UserID string `json:"userId" binding:"required"`
	Asset  string `json:"asset" binding:"required"`
	Amount string `json:"amount" binding:"required"`
	TxnID  string `json:"txnId"`
}

func (h *GatewayHandler) OnRamp(c *gin.Context) {
	var req onRampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := h.service.OnRamp(c.Request.Context(), req.UserID, req.Asset, req.Amount, req.TxnID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *GatewayHandler) GetTrades(c *gin.Context) {
	market := c.Query("market")
	if market == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market is required"})
		return
	}
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	trades, err := h.service.RecentTrades(c.Request.Context(), market, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"market": market, "trades": trades})
}

func (h *GatewayHandler) GetKlines(c *gin.Context) {
	market := c.Query("market")
	if market == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market is required"})
		return
	}
	interval, ok := klineIntervals[c.DefaultQuery("interval", "1m")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported interval"})
		return
	}
	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	klines, err := h.service.Klines(c.Request.Context(), market, interval, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"market": market, "klines": klines})
}
