package app

import (
	"github.com/sleepyyui/notallyxo-sync-service/pkg/convert"

	"github.com/gin-gonic/gin"
)

// PaginationConfig 分页参数边界
type PaginationConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultPaginationConfig 启动时由配置覆盖
var DefaultPaginationConfig = PaginationConfig{
	DefaultPageSize: 10,
	MaxPageSize:     100,
}

// queryOrForm 依次从 query 和 post form 取正整数参数
func queryOrForm(c *gin.Context, key string) int {
	if s, ok := c.GetQuery(key); ok {
		return convert.StrTo(s).MustInt()
	}
	if s := c.PostForm(key); s != "" {
		return convert.StrTo(s).MustInt()
	}
	return 0
}

// GetPage 读取页码,最小为 1
func GetPage(c *gin.Context) int {
	if page := queryOrForm(c, "page"); page > 0 {
		return page
	}
	return 1
}

// GetPageSizeWithConfig 读取分页大小并按配置夹取范围
func GetPageSizeWithConfig(c *gin.Context, cfg PaginationConfig) int {
	size := queryOrForm(c, "pageSize")
	switch {
	case size <= 0:
		return cfg.DefaultPageSize
	case size > cfg.MaxPageSize:
		return cfg.MaxPageSize
	}
	return size
}

// GetPageSize 读取分页大小,使用全局默认配置
func GetPageSize(c *gin.Context) int {
	return GetPageSizeWithConfig(c, DefaultPaginationConfig)
}

// GetPageOffset 页码换算为偏移量
func GetPageOffset(page, pageSize int) int {
	if page <= 0 {
		return 0
	}
	return (page - 1) * pageSize
}

// NewPager 根据请求构造翻页信息
func NewPager(c *gin.Context, totalRows int) *Pager {
	return &Pager{
		Page:      GetPage(c),
		PageSize:  GetPageSize(c),
		TotalRows: totalRows,
	}
}
