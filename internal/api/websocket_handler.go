package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/remi-scorer/internal/middleware"
	ws "github.com/wfunc/remi-scorer/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler upgrades connections and hands them to the hub
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler creates the websocket handler
func NewWebSocketHandler(hub *ws.Hub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// clients connect from file:// and LAN origins
				return true
			},
		},
		logger: logger,
	}
}

// Serve handles GET /ws. A seriesId query parameter joins the room
// immediately, otherwise clients send join-series afterwards.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	deviceID := middleware.GetDeviceIDOrUnknown(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.String("device_id", deviceID),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, deviceID)
	h.hub.Register(client)

	if seriesID := c.Query("seriesId"); seriesID != "" {
		h.hub.JoinSeries(client, seriesID)
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket connection established",
		zap.String("client_id", client.ID),
		zap.String("device_id", deviceID))
}

// Online reports the connected client count
func (h *WebSocketHandler) Online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online_count": h.hub.GetOnlineCount(),
	})
}
