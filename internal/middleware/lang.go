package middleware

import (
	"strings"

	"github.com/sleepyyui/notallyxo-sync-service/pkg/code"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

// LangWithTranslator 根据 lang 查询参数或请求头挑选验证错误的翻译器
// 未命中时回落英文
func LangWithTranslator(uni *ut.UniversalTranslator) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang, ok := c.GetQuery("lang")
		if !ok {
			lang = c.GetHeader("lang")
		}
		lang = strings.ToLower(strings.ReplaceAll(lang, "-", "_"))

		trans, found := uni.GetTranslator(lang)
		if !found {
			trans, _ = uni.GetTranslator("en")
		}
		c.Set("trans", trans)

		code.SetGlobalDefaultLang(lang)

		c.Next()
	}
}
