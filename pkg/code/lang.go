package code

import "errors"

// lang 保存一条结果消息的英文与中文文本
type lang struct {
	en    string
	zh_cn string
}

const fallbackLang = "en"

// 全局消息语言,由 Lang 中间件按请求设置
var lng = fallbackLang

// GetMessage 返回当前全局语言下的消息文本
// 指定语言缺失时回落英文
func (l lang) GetMessage() string {
	switch lng {
	case "zh_cn":
		if l.zh_cn != "" {
			return l.zh_cn
		}
	}
	return l.en
}

// GetSupportedLanguages 返回可用的消息语言
func GetSupportedLanguages() []string {
	return []string{"en", "zh_cn"}
}

// SetGlobalDefaultLang 设置全局消息语言
// 不支持的语言回落英文并返回错误
func SetGlobalDefaultLang(language string) error {
	for _, supported := range GetSupportedLanguages() {
		if language == supported {
			lng = language
			return nil
		}
	}
	lng = fallbackLang
	return errors.New("unsupported language type, defaulting to " + fallbackLang)
}

// GetGlobalDefaultLang 返回当前全局消息语言
func GetGlobalDefaultLang() string {
	return lng
}
