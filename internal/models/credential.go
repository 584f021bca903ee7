package models

import (
	"time"
)

// CredentialYouTube YouTube OAuth 凭证的固定主键（单频道场景下只有一行）
const CredentialYouTube = "youtube"

// Credential OAuth 凭证持久化记录
// 凭证存库而不是进程全局变量，监控周期开始时按需读取
type Credential struct {
	ID           string    `gorm:"primaryKey;size:32" json:"id"`
	AccessToken  string    `gorm:"type:text" json:"-"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	TokenType    string    `gorm:"size:32" json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}
