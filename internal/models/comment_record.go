package models

import (
	"time"
)

// 评论处理状态流转: claimed -> analyzed -> replied/skipped/failed
const (
	RecordStatusClaimed  = "claimed"  // 已占位，情感分析尚未完成
	RecordStatusAnalyzed = "analyzed" // 分析完成，未触发自动回复
	RecordStatusReplied  = "replied"  // 自动回复已发布
	RecordStatusSkipped  = "skipped"  // 策略判定不回复
	RecordStatusFailed   = "failed"   // 回复发布失败
)

// SentimentResult 情感分析结构化结果
type SentimentResult struct {
	Sentiment  string   `json:"sentiment"`                           // positive / negative / neutral
	Confidence float64  `json:"confidence"`                          // [0,1]
	Emotions   []string `json:"emotions" gorm:"serializer:json"`     // 检测到的情绪标签
	Toxicity   float64  `json:"toxicity"`                            // [0,1]
	Summary    string   `json:"summary" gorm:"type:text"`            // 简要分析
}

// CommentRecord 每条外部评论 ID 对应一条处理记录
// comment_id 上的唯一索引是防止重复处理的并发安全机制
type CommentRecord struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	CommentID    string          `gorm:"uniqueIndex;size:128;not null" json:"commentId"`
	Text         string          `gorm:"type:text" json:"text"`
	Author       string          `json:"author"`
	VideoID      string          `gorm:"index;size:32" json:"videoId"`
	PublishedAt  time.Time       `json:"publishedAt"`
	Sentiment    SentimentResult `gorm:"embedded;embeddedPrefix:sentiment_" json:"sentiment"`
	Status       string          `gorm:"size:16;default:'claimed';index" json:"status"`
	Replied      bool            `gorm:"default:false" json:"replied"`
	RepliedAt    *time.Time      `json:"repliedAt"`
	ReplyText    string          `gorm:"type:text" json:"replyText"`
	ErrorMessage string          `gorm:"type:text" json:"errorMessage"`
	CreatedAt    time.Time       `json:"createdAt"`
}
