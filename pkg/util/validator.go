package util

import "regexp"

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
)

// IsValidEmail 校验邮箱格式
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsValidUsername 校验用户名:字母数字下划线,3-20 位
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}
