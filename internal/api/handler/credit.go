package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/research_go_server/internal/api/middleware"
	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/service"
)

type CreditHandler struct {
	creditService *service.CreditService
}

func NewCreditHandler(creditService *service.CreditService) *CreditHandler {
	return &CreditHandler{creditService: creditService}
}

func toTransactionInfo(txs []*model.CreditTransaction) []dto.TransactionInfo {
	items := make([]dto.TransactionInfo, 0, len(txs))
	for _, tx := range txs {
		items = append(items, dto.TransactionInfo{
			ID:            tx.ID,
			Amount:        tx.Amount,
			Type:          tx.Type,
			Description:   tx.Description,
			ReferenceType: tx.ReferenceType,
			ProjectTitle:  tx.ProjectTitle,
			Section:       tx.Section,
			UsageType:     tx.UsageType,
			CreatedAt:     tx.CreatedAt,
		})
	}
	return items
}

// creditError 余额相关错误统一处理
func creditError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientCredits):
		response.CreditError(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.AuthError(c, "")
	case errors.Is(err, service.ErrInvalidAmount):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

// Use 扣除 1 点
// POST /api/v1/credits/use
func (h *CreditHandler) Use(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.UseCreditRequest
	// 请求体可以为空
	_ = c.ShouldBindJSON(&req)

	balance, err := h.creditService.UseCredit(userID, req.Description)
	if err != nil {
		creditError(c, err)
		return
	}

	response.Success(c, dto.BalanceResponse{Credits: balance})
}

// Balance 查询余额
// GET /api/v1/credits/balance
func (h *CreditHandler) Balance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	balance, err := h.creditService.GetBalance(userID)
	if err != nil {
		creditError(c, err)
		return
	}

	response.Success(c, dto.BalanceResponse{Credits: balance})
}

// History 余额流水
// GET /api/v1/credits/history
func (h *CreditHandler) History(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, pageSize := pageQuery(c)
	txs, total, err := h.creditService.GetHistory(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, toTransactionInfo(txs))
}
