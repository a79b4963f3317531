package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/pkg/response"
)

// UserLoader 按 ID 读取用户
type UserLoader interface {
	GetByID(id int64) (*model.User, error)
}

// AdminOnly 每次请求从数据库读取 is_admin
func AdminOnly(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		user, err := users.GetByID(userID)
		if err != nil || !user.IsAdmin {
			response.PermissionError(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
