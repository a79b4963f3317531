package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/service"
)

// BalanceReader 读取余额
type BalanceReader interface {
	GetBalance(userID int64) (int, error)
}

// CreditGate 余额为 0 时拒绝调用生成接口
func CreditGate(credits BalanceReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		balance, err := credits.GetBalance(userID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				response.AuthError(c, "")
			} else {
				response.ServerError(c, "تعذر التحقق من الرصيد")
			}
			c.Abort()
			return
		}

		if balance <= 0 {
			response.CreditError(c, service.ErrInsufficientCredits.Error())
			c.Abort()
			return
		}

		c.Next()
	}
}
