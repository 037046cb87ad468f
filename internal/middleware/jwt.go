package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ChipTracker/internal/auth"
)

// tokenFrom 先取 Authorization: Bearer，其次 ?token=（浏览器 WebSocket 无法带头）
func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
		return ""
	}
	return c.Query("token")
}

// JwtAuthMiddleware 校验失败直接 401，成功后写入 "address"
func JwtAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing token"})
			return
		}
		address, err := auth.ParseToken(secret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}
		c.Set("address", address)
		c.Next()
	}
}

// OptionalJwt 有合法 token 就带上地址，没有也放行
func OptionalJwt(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := tokenFrom(c); tokenStr != "" {
			if address, err := auth.ParseToken(secret, tokenStr); err == nil {
				c.Set("address", address)
			}
		}
		c.Next()
	}
}
