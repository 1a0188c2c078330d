// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"contextual-chat/internal/interfaces/http/handler"
)

// RegisterAPIRoutes 注册转发接口
func RegisterAPIRoutes(api *gin.RouterGroup, relayHandler *handler.RelayHandler) {
	api.POST("/chat", relayHandler.Chat)

	retrieval := api.Group("/retrieval-info")
	{
		retrieval.GET("", relayHandler.RetrievalInfo)
		retrieval.POST("", relayHandler.Query)
	}

	api.POST("/attributions", relayHandler.ResolveAttributions)
}

// RegisterPageRoutes 注册对话页
func RegisterPageRoutes(engine *gin.Engine, pageHandler *handler.ChatPageHandler) {
	engine.GET("/", pageHandler.Show)

	chat := engine.Group("/chat")
	{
		chat.POST("/messages", pageHandler.Submit)
		chat.POST("/attributions/:content_id", pageHandler.ShowAttribution)
		chat.POST("/reset", pageHandler.Reset)
	}
}
