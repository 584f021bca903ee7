package handlers

import (
	"log"
	"net/http"
	"os"
	"tubepulse/internal/middleware"
	"tubepulse/internal/services"
	"tubepulse/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// ShowLogin 仪表盘登录页面
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if !middleware.GateEnabled() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	Render(c, http.StatusOK, "auth/login.html", nil)
}

// Login 校验仪表盘访问密码
func (h *AuthHandler) Login(c *gin.Context) {
	password := c.PostForm("password")
	hash := os.Getenv("DASHBOARD_PASSWORD_HASH")

	if password == "" || !utils.CheckPassword(hash, password) {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"Error": "密码错误"})
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.DashboardAuthKey, true)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

// YouTubeLogin 发起 YouTube OAuth 授权
func (h *AuthHandler) YouTubeLogin(c *gin.Context) {
	state, err := services.GenerateStateToken()
	if err != nil {
		c.String(http.StatusInternalServerError, "生成状态令牌失败")
		return
	}

	// 将 state 存储到 session 中，用于验证回调
	session := sessions.Default(c)
	session.Set("oauth_state", state)
	session.Save()

	c.Redirect(http.StatusTemporaryRedirect, services.YouTubeAuthURL(state))
}

// YouTubeCallback 处理 YouTube OAuth 回调
func (h *AuthHandler) YouTubeCallback(c *gin.Context) {
	session := sessions.Default(c)
	savedState := session.Get("oauth_state")

	// 验证 state 参数
	if savedState == nil || c.Query("state") != savedState.(string) {
		c.Redirect(http.StatusFound, "/?auth=error")
		return
	}

	// 清除 state
	session.Delete("oauth_state")
	session.Save()

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, "/?auth=error")
		return
	}

	// 交换 token 并持久化凭证
	if _, err := services.ExchangeYouTubeCode(c.Request.Context(), code); err != nil {
		log.Printf("YouTube 授权失败: %v", err)
		c.Redirect(http.StatusFound, "/?auth=error")
		return
	}

	log.Println("YouTube 授权成功")
	c.Redirect(http.StatusFound, "/?auth=success")
}

// Status 当前授权状态
func (h *AuthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"authenticated":   services.IsAuthenticated(),
		"hasRefreshToken": services.HasRefreshToken(),
	})
}

// Logout 清除会话并删除持久化凭证
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	if err := services.ClearCredential(); err != nil {
		log.Printf("删除 YouTube 凭证失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Could not log out."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully."})
}
