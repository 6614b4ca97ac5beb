package app

import (
	"strings"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	val "github.com/go-playground/validator/v10"
)

// ValidError 单个字段的验证错误
type ValidError struct {
	Key     string
	Message string
}

type ValidErrors []*ValidError

func (v *ValidError) Error() string {
	return v.Message
}

func (v ValidErrors) Error() string {
	return strings.Join(v.Errors(), ",")
}

// Errors 返回所有错误消息
func (v ValidErrors) Errors() []string {
	var errs []string
	for _, err := range v {
		errs = append(errs, err.Error())
	}
	return errs
}

// ErrorsToString 返回逗号分隔的错误消息
func (v ValidErrors) ErrorsToString() string {
	return strings.Join(v.Errors(), ",")
}

// MapsToString 返回字段到错误消息的映射
func (v ValidErrors) MapsToString() map[string]string {
	m := make(map[string]string, len(v))
	for _, err := range v {
		m[err.Key] = err.Message
	}
	return m
}

// BindAndValid 绑定请求参数并验证，验证错误使用请求语言的翻译器翻译
// BindAndValid binds the request parameters and validates them. Validation
// errors are translated with the translator stored in the request context.
func BindAndValid(c *gin.Context, v any) (bool, ValidErrors) {
	var errs ValidErrors

	err := c.ShouldBind(v)
	if err != nil {
		verrs, ok := err.(val.ValidationErrors)
		if !ok {
			errs = append(errs, &ValidError{
				Key:     "body",
				Message: err.Error(),
			})
			return false, errs
		}

		trans, _ := c.Value("trans").(ut.Translator)
		for _, verr := range verrs {
			var message string
			if trans != nil {
				message = verr.Translate(trans)
			} else {
				message = verr.Error()
			}
			errs = append(errs, &ValidError{
				Key:     verr.Field(),
				Message: message,
			})
		}
		return false, errs
	}

	return true, nil
}
