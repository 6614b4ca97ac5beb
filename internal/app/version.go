// Package app 提供应用容器,封装所有依赖和服务
package app

// Name 应用名称,用于响应头与日志标识
const Name = "NotallyXO Sync Service"

// 构建期通过 -ldflags -X 注入,默认值用于本地开发
var (
	Version   = "0.3.1"
	GitTag    = "dev"
	BuildTime = "unknown"
)
