package service

import (
	"errors"
	"fmt"

	"github.com/qs3c/research_go_server/internal/pkg/ai"
)

// 生成失败错误码
const (
	CodeAuthRequired        = "AUTH_REQUIRED"
	CodeTitleRequired       = "TITLE_REQUIRED"
	CodeInvalidSection      = "INVALID_SECTION"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeEmptyResponse       = "EMPTY_RESPONSE"
	CodeStreamError         = "STREAM_ERROR"
	CodeConnectionError     = "CONNECTION_ERROR"
	CodeCancelled           = "CANCELLED"
	CodeUnknownError        = "UNKNOWN_ERROR"
)

// GenerationError 生成失败，Code 用于 errors.Is 比较
type GenerationError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	t, ok := target.(*GenerationError)
	return ok && t.Code == e.Code
}

// 用于 errors.Is 的哨兵
var (
	ErrAuthRequired    = &GenerationError{Code: CodeAuthRequired}
	ErrTitleRequired   = &GenerationError{Code: CodeTitleRequired}
	ErrInvalidSection  = &GenerationError{Code: CodeInvalidSection}
	ErrEmptyResponse   = &GenerationError{Code: CodeEmptyResponse}
	ErrStreamFailed    = &GenerationError{Code: CodeStreamError}
	ErrConnectionError = &GenerationError{Code: CodeConnectionError}
	ErrCreditsExceeded = &GenerationError{Code: CodeInsufficientCredits}
)

var generationMessages = map[string]string{
	CodeAuthRequired:        "يجب تسجيل الدخول أولاً",
	CodeTitleRequired:       "يرجى إدخال عنوان البحث قبل إنشاء المحتوى",
	CodeInvalidSection:      "القسم المطلوب غير معروف",
	CodeInsufficientCredits: "رصيدك غير كافٍ، يرجى شراء رصيد إضافي",
	CodeEmptyResponse:       "لم يُرجع النموذج أي محتوى",
	CodeStreamError:         "انقطع استقبال المحتوى من خدمة الذكاء الاصطناعي",
	CodeConnectionError:     "تعذر الاتصال بخدمة الذكاء الاصطناعي",
	CodeCancelled:           "تم إلغاء الطلب",
	CodeUnknownError:        "حدث خطأ غير متوقع أثناء إنشاء المحتوى",
}

// 服务商错误码对应的提示
var providerMessages = map[string]string{
	"insufficient_quota":      "نفدت حصة الاستخدام لدى مزود الخدمة، يرجى التواصل مع الدعم الفني",
	"rate_limit_exceeded":     "عدد الطلبات كبير حالياً، يرجى المحاولة بعد قليل",
	"invalid_api_key":         "مفتاح الخدمة غير صالح، يرجى التواصل مع الدعم الفني",
	"content_filter":          "رُفض الطلب من نظام تصفية المحتوى، يرجى تعديل النص والمحاولة مجدداً",
	"context_length_exceeded": "النص طويل جداً، يرجى تقسيمه إلى أجزاء أصغر",
}

func newGenerationError(code string, err error) *GenerationError {
	return &GenerationError{Code: code, Message: generationMessages[code], Err: err}
}

// translateError 把底层错误统一为 GenerationError
func translateError(err error) *GenerationError {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}

	var apiErr *ai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		msg, ok := providerMessages[code]
		if !ok {
			msg = apiErr.Message
		}
		if code == "" {
			code = CodeUnknownError
		}
		if msg == "" {
			msg = generationMessages[CodeUnknownError]
		}
		return &GenerationError{Code: code, Message: msg, Status: apiErr.StatusCode, Err: err}
	}

	var streamErr *ai.StreamError
	if errors.As(err, &streamErr) {
		return newGenerationError(CodeStreamError, err)
	}

	if errors.Is(err, ai.ErrMissingAPIKey) {
		return newGenerationError(CodeConnectionError, err)
	}

	return newGenerationError(CodeUnknownError, err)
}

// retryable 鉴权、标题和余额问题不重试
func retryable(err *GenerationError) bool {
	switch err.Code {
	case CodeAuthRequired, CodeTitleRequired, CodeInsufficientCredits:
		return false
	}
	return true
}
