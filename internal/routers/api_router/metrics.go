package api_router

import (
	"expvar"
	"fmt"

	"github.com/gin-gonic/gin"
)

// Expvar 把 expvar 注册的运行时指标以 JSON 输出
// 仅挂在私有监听端口上
func Expvar(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")

	first := true
	fmt.Fprintf(c.Writer, "{\n")
	expvar.Do(func(kv expvar.KeyValue) {
		if !first {
			fmt.Fprintf(c.Writer, ",\n")
		}
		first = false
		fmt.Fprintf(c.Writer, "%q: %v", kv.Key, kv.Value)
	})
	fmt.Fprintf(c.Writer, "\n}\n")
}
