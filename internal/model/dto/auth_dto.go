package dto

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=64"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	UserID  int64 `json:"user_id"`
	Credits int   `json:"credits"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// VerifyEmailRequest 邮箱验证请求
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
	IsVerified bool   `json:"is_verified"`
	IsAdmin    bool   `json:"is_admin"`
	Credits    int    `json:"credits"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// UpdateProfileRequest 修改个人资料
type UpdateProfileRequest struct {
	Name *string `json:"name,omitempty" binding:"omitempty,min=2,max=100"`
}
