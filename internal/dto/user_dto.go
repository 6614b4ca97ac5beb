// Package dto Defines data transfer objects (request parameters and response structs)
// Package dto 定义数据传输对象（请求参数和响应结构体）
package dto

// AuthTokenRequest Device credential exchange request
// 设备凭证换取访问令牌的请求参数
type AuthTokenRequest struct {
	UserID      string `json:"userId" form:"userId" binding:"required,min=8,max=64"`
	AuthKey     string `json:"authKey" form:"authKey" binding:"required,min=16"`
	Username    string `json:"username" form:"username"`
	DisplayName string `json:"displayName" form:"displayName"`
	PublicKey   string `json:"publicKey" form:"publicKey"`
}

// AuthTokenResponse 认证响应，客户端首次认证后保存 userId
type AuthTokenResponse struct {
	UserID    string `json:"userId"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// UserProfileResponse 用户资料响应
type UserProfileResponse struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	PublicKey   string `json:"publicKey"`
	CreatedAt   int64  `json:"createdAt"`
}

// UserProfileUpdateRequest 用户资料更新请求
type UserProfileUpdateRequest struct {
	Username    string `json:"username" form:"username"`
	DisplayName string `json:"displayName" form:"displayName"`
	PublicKey   string `json:"publicKey" form:"publicKey"`
}

// SyncStatusResponse 服务端同步状态探针响应
type SyncStatusResponse struct {
	Status     string `json:"status"`
	ServerTime int64  `json:"serverTime"`
	Version    string `json:"version"`
}
