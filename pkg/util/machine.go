package util

import (
	"os"
	"strings"
	"sync"

	"github.com/denisbrodbeck/machineid"
)

var (
	machineIDOnce sync.Once
	machineID     string
)

// GetMachineID 返回当前安装环境的稳定机器标识
// machineid 库失败时回退读取主板序列号,两者皆不可得返回空串,
// 调用方需自行处理空标识
func GetMachineID() string {
	machineIDOnce.Do(func() {
		if id, err := machineid.ID(); err == nil && id != "" {
			machineID = id
			return
		}
		// Linux 下的回退,其他平台此路径直接失败
		if serial, err := os.ReadFile("/sys/class/dmi/id/board_serial"); err == nil {
			machineID = strings.TrimSpace(string(serial))
		}
	})
	return machineID
}
