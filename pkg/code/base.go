package code

// 全局结果码定义
// 100 以下为通用码，1xxxx 为模块错误码
var (
	Success      = NewSuss(200, lang{en: "Success", zh_cn: "成功"})
	Fail         = NewError(100, lang{en: "Fail", zh_cn: "失败"})
	SuccessNotUp = NewSuss(201, lang{en: "Success, no update required", zh_cn: "成功，无需更新"})

	ErrorInvalidParams  = NewError(10001, lang{en: "Invalid Params", zh_cn: "入参错误"})
	ErrorNotFoundAPI    = NewError(10002, lang{en: "Not Found API", zh_cn: "接口不存在"})
	ErrorRequestTimeout = NewError(10003, lang{en: "Request Timeout", zh_cn: "请求超时"})
	ErrorTooManyRequests = NewError(10004, lang{en: "Too Many Requests", zh_cn: "请求过多"})
	ErrorServerInternal = NewError(10005, lang{en: "Server Internal Error", zh_cn: "服务器内部错误"})
	ErrorDBQuery        = NewError(10006, lang{en: "Database Query Error", zh_cn: "数据库查询错误"})

	ErrorNotUserAuthToken     = NewError(20001, lang{en: "Auth token is missing", zh_cn: "认证令牌缺失"})
	ErrorInvalidUserAuthToken = NewError(20002, lang{en: "Auth token is invalid", zh_cn: "认证令牌无效"})
	ErrorUserNotExist         = NewError(20003, lang{en: "User does not exist", zh_cn: "用户不存在"})
	ErrorUserAuthFailed       = NewError(20004, lang{en: "Authentication failed", zh_cn: "认证失败"})

	ErrorNoteNotFound      = NewError(30001, lang{en: "Note not found", zh_cn: "笔记不存在"})
	ErrorNoteAccessDenied  = NewError(30002, lang{en: "No write access to note", zh_cn: "无笔记写入权限"})
	ErrorNoteNotOwner      = NewError(30003, lang{en: "Only the owner may perform this action", zh_cn: "仅笔记所有者可执行此操作"})
	ErrorNoteSyncPartial   = NewError(30004, lang{en: "Some notes could not be synced", zh_cn: "部分笔记同步失败"})
	ErrorNoteSyncConflicts = NewError(30005, lang{en: "Conflicts detected during sync", zh_cn: "同步时检测到冲突"})

	ErrorShareTokenInvalid  = NewError(40001, lang{en: "Sharing token is invalid", zh_cn: "分享令牌无效"})
	ErrorShareTokenUsed     = NewError(40002, lang{en: "Sharing token has already been used", zh_cn: "分享令牌已被使用"})
	ErrorShareTokenExpired  = NewError(40003, lang{en: "Sharing token has expired", zh_cn: "分享令牌已过期"})
	ErrorShareAlreadyExists = NewError(40004, lang{en: "Note is already shared with this user", zh_cn: "笔记已分享给该用户"})
	ErrorShareWithSelf      = NewError(40005, lang{en: "Cannot share a note with its owner", zh_cn: "不能将笔记分享给所有者"})
)
