// Package convert 提供查询参数到数值类型的转换
package convert

import "strconv"

type StrTo string

func (s StrTo) String() string {
	return string(s)
}

func (s StrTo) Int() (int, error) {
	return strconv.Atoi(s.String())
}

// MustInt 转换失败时返回零值
func (s StrTo) MustInt() int {
	v, _ := s.Int()
	return v
}

func (s StrTo) Int64() (int64, error) {
	return strconv.ParseInt(s.String(), 10, 64)
}

// MustInt64 转换失败时返回零值
func (s StrTo) MustInt64() int64 {
	v, _ := s.Int64()
	return v
}
