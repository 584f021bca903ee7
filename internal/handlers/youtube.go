package handlers

import (
	"net/http"
	"tubepulse/internal/services"
	"tubepulse/internal/utils"

	"github.com/gin-gonic/gin"
)

type YouTubeHandler struct{}

func NewYouTubeHandler() *YouTubeHandler {
	return &YouTubeHandler{}
}

// Channel 获取频道信息
func (h *YouTubeHandler) Channel(c *gin.Context) {
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
	c.JSON(http.StatusOK, channel)
}

// Videos 获取最近上传的视频列表
func (h *YouTubeHandler) Videos(c *gin.Context) {
	maxResults := utils.StringToInt(c.DefaultQuery("maxResults", "50"))

	svc, err := services.NewYouTubeService(c.Request.Context())
	if err != nil {
		JSONError(c, err)
		return
	}

	videos, err := svc.GetVideos(maxResults)
	if err != nil {
		JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, videos)
}

// VideoComments 获取指定视频的评论串
func (h *YouTubeHandler) VideoComments(c *gin.Context) {
	videoID := c.Param("videoId")
	maxResults := utils.StringToInt(c.DefaultQuery("maxResults", "100"))

	svc, err := services.NewYouTubeService(c.Request.Context())
	if err != nil {
		JSONError(c, err)
		return
	}

	page, err := svc.GetVideoComments(videoID, maxResults)
	if err != nil {
		JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// RecentComments 获取全部视频在回看窗口内的新评论
func (h *YouTubeHandler) RecentComments(c *gin.Context) {
	hours := utils.StringToInt(c.DefaultQuery("hours", "24"))

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
	c.JSON(http.StatusOK, comments)
}

// AnalyzeComment 分析单条评论文本的情感（不落库，不触发回复）
func (h *YouTubeHandler) AnalyzeComment(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment text is required"})
		return
	}

	sentiment := services.GetSentimentService().AnalyzeSentiment(c.Request.Context(), utils.PlainText(body.Text))
	c.JSON(http.StatusOK, sentiment)
}

// ReplyComment 手动回复指定评论
func (h *YouTubeHandler) ReplyComment(c *gin.Context) {
	commentID := c.Param("commentId")

	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reply text is required"})
		return
	}

	svc, err := services.NewYouTubeService(c.Request.Context())
	if err != nil {
		JSONError(c, err)
		return
	}

	reply, err := svc.ReplyToComment(commentID, body.Text)
	if err != nil {
		JSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// BulkAnalyze 批量分析指定视频的评论，已有记录的评论自动跳过
func (h *YouTubeHandler) BulkAnalyze(c *gin.Context) {
	videoID := c.Param("videoId")

	svc, err := services.NewYouTubeService(c.Request.Context())
	if err != nil {
		JSONError(c, err)
		return
	}

	page, err := svc.GetVideoComments(videoID, 50)
	if err != nil {
		JSONError(c, err)
		return
	}
	if len(page.Comments) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"message":           "No comments found for video " + videoID + " to analyze.",
			"processedComments": 0,
		})
		return
	}

	monitor := services.GetMonitor()
	type detail struct {
		CommentID string `json:"commentId"`
		Sentiment string `json:"sentiment"`
	}
	details := make([]detail, 0)

	for _, comment := range page.Comments {
		comment.VideoID = videoID
		result := monitor.ProcessComment(c.Request.Context(), comment)
		if result == nil {
			continue
		}
		details = append(details, detail{
			CommentID: result.Comment.ID,
			Sentiment: result.Sentiment.Sentiment,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           "Bulk analysis completed for video " + videoID + ".",
		"processedComments": len(details),
		"details":           details,
	})
}
