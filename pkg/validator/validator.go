// Package validator 封装 gin binding 使用的自定义验证器
// Package validator wraps the validator instance used by gin binding.
package validator

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	validatorV10 "github.com/go-playground/validator/v10"
)

// CustomValidator 实现 binding.StructValidator
type CustomValidator struct {
	once     sync.Once
	Validate *validatorV10.Validate
}

var _ binding.StructValidator = (*CustomValidator)(nil)

// NewCustomValidator 创建验证器实例
func NewCustomValidator() *CustomValidator {
	return &CustomValidator{}
}

// ValidateStruct 验证结构体
func (v *CustomValidator) ValidateStruct(obj any) error {
	if kindOfData(obj) == reflect.Struct {
		v.lazyinit()
		if err := v.Validate.Struct(obj); err != nil {
			return err
		}
	}
	return nil
}

// Engine 返回底层验证引擎
func (v *CustomValidator) Engine() any {
	v.lazyinit()
	return v.Validate
}

func (v *CustomValidator) lazyinit() {
	v.once.Do(func() {
		v.Validate = validatorV10.New()
		v.Validate.SetTagName("binding")
	})
}

func kindOfData(data any) reflect.Kind {
	value := reflect.ValueOf(data)
	valueType := value.Kind()
	if valueType == reflect.Ptr {
		valueType = value.Elem().Kind()
	}
	return valueType
}
