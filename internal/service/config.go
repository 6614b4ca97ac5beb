// Package service implements the business logic layer
// Package service 实现业务逻辑层
package service

// ServiceConfig service layer configuration
// ServiceConfig 服务层配置
type ServiceConfig struct {
	User  UserServiceConfig  // User related config // 用户相关配置
	Share ShareServiceConfig // Share related config // 分享相关配置
}

// UserServiceConfig user service configuration
// UserServiceConfig 用户服务配置
type UserServiceConfig struct {
	RegisterIsEnable bool   // Whether first-seen devices may register // 是否允许新设备自动注册
	TokenExpiry      string // Access token expiry (e.g., 720h) // 访问令牌过期时间
}

// ShareServiceConfig share service configuration
// ShareServiceConfig 分享服务配置
type ShareServiceConfig struct {
	DefaultTokenExpiry string // Default sharing token expiry (e.g., 24h, 0/empty for never) // 分享令牌默认过期时间
	UsedTokenRetention string // How long used tokens are kept before cleanup (e.g., 7d) // 已使用令牌的保留时间
}
