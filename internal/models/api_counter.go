package models

import (
	"time"
)

// GeminiCounterID Gemini 情感分析接口的用量计数器固定主键
const GeminiCounterID = "geminiSentimentApi"

// ApiCounter 外部接口调用量计数器，单调递增，首次自增时惰性创建
type ApiCounter struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Count     int64     `gorm:"default:0" json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
