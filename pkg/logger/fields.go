package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldUserID 用户 ID 字段
	FieldUserID = "userId"

	// FieldSyncID 笔记同步 ID 字段
	FieldSyncID = "syncId"

	// FieldToken 分享令牌字段
	FieldToken = "token"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldSessionID 会话 ID 字段
	FieldSessionID = "sessionId"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldError 错误信息字段
	FieldError = "error"

	// FieldState 同步状态字段
	FieldState = "state"

	// FieldAttempt 重连尝试次数字段
	FieldAttempt = "attempt"

	// FieldCount 数量字段
	FieldCount = "count"
)
