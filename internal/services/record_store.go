package services

import (
	"fmt"
	"time"
	"tubepulse/internal/db"
	"tubepulse/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordOutcome 处理完成后写回记录的最终状态
type RecordOutcome struct {
	Sentiment    models.SentimentResult
	Status       string
	Replied      bool
	RepliedAt    *time.Time
	ReplyText    string
	ErrorMessage string
}

// DBRecordStore 评论处理记录存储（Postgres）
// comment_id 上的唯一索引 + ON CONFLICT DO NOTHING 是唯一的并发安全机制：
// 同一条评论的并发认领只会有一个赢家
type DBRecordStore struct{}

// Ready 存储是否可用，不可用时当前周期直接中止
func (DBRecordStore) Ready() error {
	if db.DB == nil {
		return ErrStorageUnavailable
	}
	return nil
}

// TryClaim 原子化地为 commentId 插入占位记录
// 返回 true 表示本次调用完成了插入（调用方获得处理权），
// false 表示记录已存在（输掉竞争或预过滤过期），正常跳过而不是报错
func (s DBRecordStore) TryClaim(rec *models.CommentRecord) (bool, error) {
	if db.DB == nil {
		return false, ErrStorageUnavailable
	}
	if rec.Status == "" {
		rec.Status = models.RecordStatusClaimed
	}

	result := db.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "comment_id"}},
		DoNothing: true,
	}).Create(rec)
	if result.Error != nil {
		return false, fmt.Errorf("认领评论 %s 失败: %w", rec.CommentID, result.Error)
	}

	return result.RowsAffected == 1, nil
}

// Finalize 更新已认领的记录，从不创建新记录（必须先 TryClaim）
func (s DBRecordStore) Finalize(commentID string, outcome RecordOutcome) error {
	if db.DB == nil {
		return ErrStorageUnavailable
	}

	var rec models.CommentRecord
	if err := db.DB.Where("comment_id = ?", commentID).First(&rec).Error; err != nil {
		return fmt.Errorf("记录 %s 不存在，无法更新: %w", commentID, err)
	}

	rec.Sentiment = outcome.Sentiment
	rec.Status = outcome.Status
	rec.Replied = outcome.Replied
	rec.RepliedAt = outcome.RepliedAt
	rec.ReplyText = outcome.ReplyText
	rec.ErrorMessage = outcome.ErrorMessage

	return db.DB.Save(&rec).Error
}

// Find 按外部评论 ID 查找记录，不存在时返回 nil
func (s DBRecordStore) Find(commentID string) (*models.CommentRecord, error) {
	if db.DB == nil {
		return nil, ErrStorageUnavailable
	}

	var rec models.CommentRecord
	err := db.DB.Where("comment_id = ?", commentID).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ExistingIDs 批量检查哪些评论 ID 已有记录，用于昂贵处理前的预过滤
func (s DBRecordStore) ExistingIDs(ids []string) (map[string]bool, error) {
	if db.DB == nil {
		return nil, ErrStorageUnavailable
	}
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	var found []string
	err := db.DB.Model(&models.CommentRecord{}).
		Where("comment_id IN ?", ids).
		Pluck("comment_id", &found).Error
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(found))
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// RecentRecords 按创建时间倒序返回最近的处理记录，供仪表盘展示
func (s DBRecordStore) RecentRecords(limit int) ([]models.CommentRecord, error) {
	if db.DB == nil {
		return nil, ErrStorageUnavailable
	}
	if limit <= 0 {
		limit = 10
	}

	var records []models.CommentRecord
	err := db.DB.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// GeminiUsageCounter Gemini 调用量计数器，惰性创建 + 原子自增
type GeminiUsageCounter struct{}

// Increment 计数加一（upsert，首次调用时创建计数行）
func (GeminiUsageCounter) Increment() error {
	if db.DB == nil {
		return ErrStorageUnavailable
	}

	return db.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("api_counters.count + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&models.ApiCounter{ID: models.GeminiCounterID, Count: 1}).Error
}

// GetUsageCount 读取当前计数，计数行尚未创建时返回 0
func GetUsageCount() (int64, error) {
	if db.DB == nil {
		return 0, ErrStorageUnavailable
	}

	var counter models.ApiCounter
	err := db.DB.Where("id = ?", models.GeminiCounterID).First(&counter).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}
