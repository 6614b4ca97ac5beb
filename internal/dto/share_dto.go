package dto

// ShareNoteRequest 直接对指定用户授权的请求
type ShareNoteRequest struct {
	UserID      string `json:"userId" form:"userId" binding:"required"`
	AccessLevel string `json:"accessLevel" form:"accessLevel" binding:"required,oneof=READ_ONLY READ_WRITE"`
}

// SharingTokenRequest 创建一次性分享令牌的请求，参数走 query
// expiryTime 为毫秒时间戳，0 表示永不过期
type SharingTokenRequest struct {
	AccessLevel string `json:"accessLevel" form:"access_level" binding:"omitempty,oneof=READ_ONLY READ_WRITE"`
	ExpiryTime  int64  `json:"expiryTime" form:"expiry_time"`
}

// SharingTokenResponse 分享令牌响应
type SharingTokenResponse struct {
	Token string `json:"token"`
}

// AcceptShareRequest 兑换分享令牌的请求
type AcceptShareRequest struct {
	Token string `json:"token" form:"token" binding:"required"`
}

// AcceptShareResponse 兑换结果，携带被分享的笔记
type AcceptShareResponse struct {
	Note NoteDto `json:"note"`
}
