package services

import (
	"context"
	"log"
	"sync"
	"time"
	"tubepulse/internal/models"
	"tubepulse/internal/utils"
)

// CommentSource 评论来源（生产环境为 YouTube）
type CommentSource interface {
	Authenticated() bool
	RecentComments(ctx context.Context, hours int) ([]models.Comment, error)
	PostReply(ctx context.Context, commentID, text string) (*models.Reply, error)
}

// Analyzer 情感分析器（生产环境为 Gemini）
// 分析与回复生成从不报错，失败在实现内部退化为默认值
type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) models.SentimentResult
	GenerateReply(ctx context.Context, comment models.Comment, sentiment models.SentimentResult) string
	ShouldAutoReply(sentiment models.SentimentResult) bool
}

// RecordStore 评论处理记录存储
type RecordStore interface {
	Ready() error
	TryClaim(rec *models.CommentRecord) (bool, error)
	Finalize(commentID string, outcome RecordOutcome) error
	Find(commentID string) (*models.CommentRecord, error)
	ExistingIDs(ids []string) (map[string]bool, error)
}

// ProcessResult 单条评论的处理结果，用于手动触发接口的回报
type ProcessResult struct {
	Comment     models.Comment         `json:"comment"`
	Sentiment   models.SentimentResult `json:"sentiment"`
	ShouldReply bool                   `json:"shouldReply"`
	Reply       *models.Reply          `json:"reply"`
}

// Monitor 评论监控调度器 + 处理流水线
// 状态只有 Stopped/Running 两种，Stop 之后不会再有新的 tick 触发
type Monitor struct {
	source   CommentSource
	analyzer Analyzer
	store    RecordStore

	mu      sync.Mutex
	running bool
	stopc   chan struct{}
}

var (
	monitorInstance *Monitor
	monitorOnce     sync.Once
)

// GetMonitor 获取监控服务单例（生产依赖装配）
func GetMonitor() *Monitor {
	monitorOnce.Do(func() {
		monitorInstance = &Monitor{
			source:   youtubeSource{},
			analyzer: GetSentimentService(),
			store:    DBRecordStore{},
		}
	})
	return monitorInstance
}

// Start 启动定时监控，已在运行时为记录日志的空操作（幂等）
func (m *Monitor) Start(intervalMinutes int) {
	if intervalMinutes <= 0 {
		intervalMinutes = 30
	}
	m.startEvery(time.Duration(intervalMinutes) * time.Minute)
}

func (m *Monitor) startEvery(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		log.Println("监控已在运行，忽略重复启动")
		return
	}

	m.stopc = make(chan struct{})
	m.running = true
	go m.loop(interval, m.stopc)

	log.Printf("评论监控已启动，间隔 %s", interval)
}

// loop 定时器循环，tick 内的任何失败只记日志，绝不让调度器崩溃
func (m *Monitor) loop(interval time.Duration, stopc chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			results, err := m.RunOnce(context.Background())
			if err != nil {
				log.Printf("定时监控周期失败: %v", err)
				continue
			}
			log.Printf("定时监控周期完成，处理 %d 条新评论", len(results))
		case <-stopc:
			return
		}
	}
}

// Stop 停止监控。关闭停止通道后不会再触发新的 tick；
// 正在执行中的周期会跑完，其写入全部经过认领保护，因此是安全的
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	close(m.stopc)
	m.running = false
	log.Println("评论监控已停止")
}

// IsRunning 当前是否处于 Running 状态
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunOnce 立即执行一个监控周期并同步返回结果，不改变调度状态
// 周期级错误（无凭证、存储不可用、拉取失败）中止本周期并上抛；
// 单条评论的失败被隔离在循环体内
func (m *Monitor) RunOnce(ctx context.Context) ([]ProcessResult, error) {
	if err := m.store.Ready(); err != nil {
		return nil, err
	}
	if !m.source.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	hours := utils.EnvInt("MONITOR_LOOKBACK_HOURS", 24)
	log.Printf("开始检查最近 %d 小时的新评论...", hours)

	comments, err := m.source.RecentComments(ctx, hours)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		log.Println("没有发现新评论")
		return []ProcessResult{}, nil
	}

	// 预过滤已有记录的评论，避免浪费分类器调用
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	existing, err := m.store.ExistingIDs(ids)
	if err != nil {
		return nil, err
	}

	// 串行处理，不并行，避免触发分类器和平台的限流
	results := make([]ProcessResult, 0)
	for _, comment := range comments {
		if existing[comment.ID] {
			continue
		}
		if result := m.ProcessComment(ctx, comment); result != nil {
			results = append(results, *result)
		}
	}

	log.Printf("监控周期完成，处理 %d 条新评论", len(results))
	return results, nil
}

// ProcessComment 处理单条评论: 认领 -> 分析 -> 决策 -> (回复) -> 落库
// 返回 nil 表示跳过（已处理过、输掉认领竞争或认领失败）
func (m *Monitor) ProcessComment(ctx context.Context, comment models.Comment) *ProcessResult {
	text := utils.PlainText(comment.Text)

	claimed, err := m.store.TryClaim(&models.CommentRecord{
		CommentID:   comment.ID,
		Text:        text,
		Author:      comment.Author,
		VideoID:     comment.VideoID,
		PublishedAt: comment.PublishedAt,
		Status:      models.RecordStatusClaimed,
	})
	if err != nil {
		log.Printf("认领评论 %s 失败: %v", comment.ID, err)
		return nil
	}
	if !claimed {
		log.Printf("评论 %s 已有记录，跳过", comment.ID)
		return nil
	}

	sentiment := m.analyzer.AnalyzeSentiment(ctx, text)

	result := &ProcessResult{
		Comment:     comment,
		Sentiment:   sentiment,
		ShouldReply: m.analyzer.ShouldAutoReply(sentiment),
	}

	// 自动回复开关在每个处理点重新读取，避免错过配置变更
	if result.ShouldReply && utils.EnvBool("AUTO_REPLY_ENABLED") {
		replyText := m.analyzer.GenerateReply(ctx, comment, sentiment)

		reply, err := m.source.PostReply(ctx, comment.ID, replyText)
		if err != nil {
			log.Printf("自动回复评论 %s 失败: %v", comment.ID, err)
			m.finalize(comment.ID, RecordOutcome{
				Sentiment:    sentiment,
				Status:       models.RecordStatusFailed,
				ErrorMessage: err.Error(),
			})
			return result
		}

		now := time.Now()
		m.finalize(comment.ID, RecordOutcome{
			Sentiment: sentiment,
			Status:    models.RecordStatusReplied,
			Replied:   true,
			RepliedAt: &now,
			ReplyText: replyText,
		})
		result.Reply = reply
		log.Printf("已自动回复评论 %s", comment.ID)
		return result
	}

	status := models.RecordStatusAnalyzed
	if !result.ShouldReply {
		status = models.RecordStatusSkipped
	}
	m.finalize(comment.ID, RecordOutcome{
		Sentiment: sentiment,
		Status:    status,
	})
	return result
}

func (m *Monitor) finalize(commentID string, outcome RecordOutcome) {
	if err := m.store.Finalize(commentID, outcome); err != nil {
		log.Printf("更新评论 %s 记录失败: %v", commentID, err)
	}
}

// youtubeSource 生产环境的评论来源，每个周期用当时的持久化凭证构建客户端
type youtubeSource struct{}

func (youtubeSource) Authenticated() bool {
	return IsAuthenticated()
}

func (youtubeSource) RecentComments(ctx context.Context, hours int) ([]models.Comment, error) {
	svc, err := NewYouTubeService(ctx)
	if err != nil {
		return nil, err
	}
	return svc.GetRecentComments(hours)
}

func (youtubeSource) PostReply(ctx context.Context, commentID, text string) (*models.Reply, error) {
	svc, err := NewYouTubeService(ctx)
	if err != nil {
		return nil, err
	}
	return svc.ReplyToComment(commentID, text)
}
