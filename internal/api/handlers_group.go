package api

import "Reelwatch/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	ReelHandler      *handler.ReelHandler
	RefreshHandler   *handler.RefreshHandler
	AnalyticsHandler *handler.AnalyticsHandler
	WSHandler        *handler.WsHandler
}
