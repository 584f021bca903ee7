package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const DashboardAuthKey = "dashboard_authed"

// GateEnabled 是否启用仪表盘访问密码
// DASHBOARD_PASSWORD_HASH 未设置时仪表盘对外开放（本地开发场景）
func GateEnabled() bool {
	return os.Getenv("DASHBOARD_PASSWORD_HASH") != ""
}

// AuthRequired ensures the dashboard session is unlocked
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GateEnabled() {
			c.Next()
			return
		}

		session := sessions.Default(c)
		if authed, ok := session.Get(DashboardAuthKey).(bool); ok && authed {
			c.Next()
			return
		}

		// API 调用返回 401，页面请求跳登录页
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}
