package handlers

import (
	"log"
	"net/http"
	"time"
	"tubepulse/internal/models"
	"tubepulse/internal/services"
	"tubepulse/internal/utils"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	store services.DBRecordStore
}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Index 仪表盘主页，最近的处理记录服务端渲染，其余数据由前端拉取
func (h *DashboardHandler) Index(c *gin.Context) {
	records, err := h.store.RecentRecords(10)
	if err != nil {
		records = nil
	}

	c.Header("Cache-Control", "no-store")
	Render(c, http.StatusOK, "dashboard/index.html", gin.H{
		"Title":         "TubePulse 评论监控台",
		"Records":       records,
		"Authenticated": services.IsAuthenticated(),
	})
}

// Overview 仪表盘概览: 频道信息 + 聚合统计 + 最近 24 小时评论的情感分布
func (h *DashboardHandler) Overview(c *gin.Context) {
	svc, err := services.NewYouTubeService(c.Request.Context())
	if err != nil {
		JSONError(c, err)
		return
	}

	channel, err := svc.GetChannelInfo()
	if err != nil {
		JSONError(c, err)
		return
	}
	videos, err := svc.GetVideos(10)
	if err != nil {
		JSONError(c, err)
		return
	}
	recentComments, err := svc.GetRecentComments(24)
	if err != nil {
		JSONError(c, err)
		return
	}

	var totalViews, totalLikes, totalComments int64
	for _, v := range videos {
		totalViews += v.ViewCount
		totalLikes += v.LikeCount
		if v.CommentCount > 0 {
			totalComments += v.CommentCount
		}
	}

	// 情感分布只读存量记录，最多查 20 条，没有记录的按中性计
	sentimentCounts := map[string]int{"positive": 0, "negative": 0, "neutral": 0}
	sample := recentComments
	if len(sample) > 20 {
		sample = sample[:20]
	}
	for _, comment := range sample {
		record, err := h.store.Find(comment.ID)
		if err != nil || record == nil {
			sentimentCounts["neutral"]++
			continue
		}
		if _, ok := sentimentCounts[record.Sentiment.Sentiment]; ok {
			sentimentCounts[record.Sentiment.Sentiment]++
		} else {
			sentimentCounts["neutral"]++
		}
	}

	recentVideos := videos
	if len(recentVideos) > 5 {
		recentVideos = recentVideos[:5]
	}
	topComments := recentComments
	if len(topComments) > 10 {
		topComments = topComments[:10]
	}

	c.JSON(http.StatusOK, gin.H{
		"channel": channel,
		"analytics": gin.H{
			"totalViews":          totalViews,
			"totalLikes":          totalLikes,
			"totalComments":       totalComments,
			"recentCommentsCount": len(recentComments),
			"sentimentBreakdown":  sentimentCounts,
		},
		"recentVideos":   recentVideos,
		"recentComments": topComments,
	})
}

// AnalyticsSentiment 指定时间窗口内的情感分桶明细和时间线
func (h *DashboardHandler) AnalyticsSentiment(c *gin.Context) {
	hours := utils.StringToInt(c.DefaultQuery("hours", "168")) // 默认 7 天

	svc, err := services.NewYouTubeService(c.Request.Context())
	if err != nil {
		JSONError(c, err)
		return
	}

	comments, err := svc.GetRecentComments(hours)
	if err != nil {
		JSONError(c, err)
		return
	}
	if len(comments) > 100 {
		comments = comments[:100]
	}

	type enrichedComment struct {
		CommentID             string                 `json:"commentId"`
		Author                string                 `json:"author"`
		AuthorProfileImageURL string                 `json:"authorProfileImageUrl"`
		Comment               string                 `json:"comment"`
		Confidence            float64                `json:"confidence"`
		PublishedAt           time.Time              `json:"publishedAt"`
		VideoTitle            string                 `json:"videoTitle"`
		LikeCount             int64                  `json:"likeCount"`
		Sentiment             models.SentimentResult `json:"sentiment"`
	}
	type timelineEntry struct {
		Sentiment   string    `json:"sentiment"`
		PublishedAt time.Time `json:"publishedAt"`
	}

	buckets := map[string][]enrichedComment{
		"positive": {},
		"negative": {},
		"neutral":  {},
	}
	timeline := make([]timelineEntry, 0)

	for _, comment := range comments {
		record, err := h.store.Find(comment.ID)
		if err != nil || record == nil {
			continue
		}

		bucket := record.Sentiment.Sentiment
		if _, ok := buckets[bucket]; !ok {
			bucket = "neutral"
		}

		buckets[bucket] = append(buckets[bucket], enrichedComment{
			CommentID:             comment.ID,
			Author:                comment.Author,
			AuthorProfileImageURL: comment.AuthorProfileImageURL,
			Comment:               comment.Text,
			Confidence:            record.Sentiment.Confidence,
			PublishedAt:           comment.PublishedAt,
			VideoTitle:            comment.VideoTitle,
			LikeCount:             comment.LikeCount,
			Sentiment:             record.Sentiment,
		})
		timeline = append(timeline, timelineEntry{
			Sentiment:   bucket,
			PublishedAt: comment.PublishedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"positive": buckets["positive"],
		"negative": buckets["negative"],
		"neutral":  buckets["neutral"],
		"timeline": timeline,
	})
}

// AutoReplyStatus 监控与自动回复配置现状
func (h *DashboardHandler) AutoReplyStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled":            utils.EnvBool("AUTO_REPLY_ENABLED"),
		"isMonitoring":       services.GetMonitor().IsRunning(),
		"checkInterval":      utils.EnvInt("CHECK_INTERVAL_MINUTES", 30),
		"sentimentThreshold": utils.EnvFloat("SENTIMENT_THRESHOLD", 0.3),
		"lookbackHours":      utils.EnvInt("MONITOR_LOOKBACK_HOURS", 24),
	})
}

// AutoReplyToggle 开关评论监控
func (h *DashboardHandler) AutoReplyToggle(c *gin.Context) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled flag is required"})
		return
	}

	monitor := services.GetMonitor()
	if body.Enabled {
		monitor.Start(utils.EnvInt("CHECK_INTERVAL_MINUTES", 30))
	} else {
		monitor.Stop()
	}

	message := "Auto-reply disabled"
	if body.Enabled {
		message = "Auto-reply enabled"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"autoReplyEnabled": body.Enabled,
		"message":          message,
	})
}

// MonitorTrigger 手动触发一次监控周期，同步返回处理结果
// 部分评论失败不影响返回 200，只有周期级故障才报错
func (h *DashboardHandler) MonitorTrigger(c *gin.Context) {
	results, err := services.GetMonitor().RunOnce(c.Request.Context())
	if err != nil {
		log.Printf("手动触发监控失败: %v", err)
		JSONError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"processedComments": len(results),
		"results":           results,
	})
}

// GeminiUsage Gemini 接口累计调用量
func (h *DashboardHandler) GeminiUsage(c *gin.Context) {
	count, err := services.GetUsageCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch API call count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalApiCalls": count})
}
