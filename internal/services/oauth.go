package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"tubepulse/internal/db"
	"tubepulse/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var youtubeOAuthConfig *oauth2.Config

// InitYouTubeOAuth 初始化 YouTube OAuth 配置
func InitYouTubeOAuth() {
	redirectURI := os.Getenv("YOUTUBE_REDIRECT_URI")
	if redirectURI == "" {
		siteURL := os.Getenv("SITE_URL")
		if siteURL == "" {
			siteURL = "http://localhost:8080"
		}
		redirectURI = siteURL + "/auth/youtube/callback"
	}

	youtubeOAuthConfig = &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  redirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube.readonly",
			"https://www.googleapis.com/auth/youtube.force-ssl",
		},
		Endpoint: google.Endpoint,
	}
}

// GenerateStateToken 生成随机 state token
func GenerateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// YouTubeAuthURL 生成 YouTube 授权跳转地址
// 请求 offline 访问并强制出同意页，确保拿到 refresh_token
func YouTubeAuthURL(state string) string {
	return youtubeOAuthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeYouTubeCode 用授权码交换 token 并持久化凭证
func ExchangeYouTubeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := youtubeOAuthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("交换访问令牌失败: %w", err)
	}
	if err := SaveCredential(token); err != nil {
		return nil, err
	}
	return token, nil
}

// SaveCredential 保存凭证到数据库（upsert 单行）
// Google 刷新时不会重发 refresh_token，新值为空时保留旧值
func SaveCredential(token *oauth2.Token) error {
	if db.DB == nil {
		return ErrStorageUnavailable
	}

	cred := models.Credential{ID: models.CredentialYouTube}
	db.DB.Where("id = ?", models.CredentialYouTube).First(&cred)

	cred.AccessToken = token.AccessToken
	cred.TokenType = token.TokenType
	cred.Expiry = token.Expiry
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}

	return db.DB.Save(&cred).Error
}

// LoadCredential 读取持久化的 YouTube 凭证
func LoadCredential() (*oauth2.Token, error) {
	if db.DB == nil {
		return nil, ErrStorageUnavailable
	}

	var cred models.Credential
	if err := db.DB.Where("id = ?", models.CredentialYouTube).First(&cred).Error; err != nil {
		return nil, ErrNotAuthenticated
	}
	if cred.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	return &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		Expiry:       cred.Expiry,
	}, nil
}

// IsAuthenticated 是否存在可用凭证
func IsAuthenticated() bool {
	_, err := LoadCredential()
	return err == nil
}

// HasRefreshToken 是否持有 refresh_token（决定长期监控是否可行）
func HasRefreshToken() bool {
	token, err := LoadCredential()
	return err == nil && token.RefreshToken != ""
}

// ClearCredential 删除凭证（退出登录）
func ClearCredential() error {
	if db.DB == nil {
		return ErrStorageUnavailable
	}
	return db.DB.Delete(&models.Credential{}, "id = ?", models.CredentialYouTube).Error
}

// persistingTokenSource 包装 oauth2.TokenSource，token 刷新后回写数据库
// 这样定时监控在 access_token 过期后仍能继续运行
type persistingTokenSource struct {
	src  oauth2.TokenSource
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != p.last {
		p.last = token.AccessToken
		if saveErr := SaveCredential(token); saveErr != nil {
			// 回写失败不阻断本次调用，下次刷新会再试
			return token, nil
		}
	}
	return token, nil
}

// youtubeTokenSource 基于持久化凭证构造可自动刷新的 TokenSource
func youtubeTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := LoadCredential()
	if err != nil {
		return nil, err
	}
	src := youtubeOAuthConfig.TokenSource(ctx, token)
	return oauth2.ReuseTokenSource(token, &persistingTokenSource{src: src, last: token.AccessToken}), nil
}
