package router

import (
	"tubepulse/internal/handlers"
	"tubepulse/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Handlers
	authHandler := handlers.NewAuthHandler()
	youtubeHandler := handlers.NewYouTubeHandler()
	dashboardHandler := handlers.NewDashboardHandler()

	// 404 页面
	r.NoRoute(func(c *gin.Context) {
		handlers.RenderError(c, 404, "页面不存在")
	})

	// 公共路由 (Public Routes)
	r.GET("/login", authHandler.ShowLogin) // 仪表盘登录页面
	r.POST("/login", authHandler.Login)    // 提交仪表盘密码

	// OAuth 授权路由
	auth := r.Group("/auth")
	{
		auth.GET("/youtube", authHandler.YouTubeLogin)             // 发起 YouTube 授权
		auth.GET("/youtube/callback", authHandler.YouTubeCallback) // 授权回调
		auth.GET("/status", authHandler.Status)                    // 授权状态
		auth.POST("/logout", authHandler.Logout)                   // 退出并清除凭证
	}

	// 仪表盘页面
	page := r.Group("/")
	page.Use(middleware.AuthRequired())
	{
		page.GET("", dashboardHandler.Index) // 仪表盘主页
	}

	// YouTube 数据接口
	youtube := r.Group("/api/youtube")
	youtube.Use(middleware.AuthRequired())
	{
		youtube.GET("/channel", youtubeHandler.Channel)                         // 频道信息
		youtube.GET("/videos", youtubeHandler.Videos)                           // 视频列表
		youtube.GET("/videos/:videoId/comments", youtubeHandler.VideoComments)  // 单视频评论串
		youtube.GET("/comments/recent", youtubeHandler.RecentComments)          // 回看窗口内的新评论
		youtube.POST("/comments/:commentId/analyze", youtubeHandler.AnalyzeComment) // 单条评论情感分析
		youtube.POST("/comments/:commentId/reply", youtubeHandler.ReplyComment) // 手动回复评论
		youtube.POST("/videos/:videoId/analyze-comments", youtubeHandler.BulkAnalyze) // 批量分析（去重）
	}

	// 仪表盘聚合接口
	dashboard := r.Group("/api/dashboard")
	dashboard.Use(middleware.AuthRequired())
	{
		dashboard.GET("/overview", dashboardHandler.Overview)                        // 概览聚合
		dashboard.GET("/analytics/sentiment", dashboardHandler.AnalyticsSentiment)   // 情感分桶明细
		dashboard.GET("/analytics/gemini-usage", dashboardHandler.GeminiUsage)       // Gemini 用量
		dashboard.GET("/auto-reply/status", dashboardHandler.AutoReplyStatus)        // 监控状态
		dashboard.POST("/auto-reply/toggle", dashboardHandler.AutoReplyToggle)       // 开关监控
		dashboard.POST("/monitor/trigger", dashboardHandler.MonitorTrigger)          // 手动触发一次监控
	}
}
