package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"os"

	"github.com/google/uuid"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/util"
)

// DeviceUserIDLength 设备用户标识长度
const DeviceUserIDLength = 16

// CreateDeviceUserID 生成设备绑定的用户标识
// 混合机器 ID、主机名和随机 UUID 后取 SHA-256，编码为 URL 安全的短标识
// 调用方负责持久化，保证每次安装只生成一次
// CreateDeviceUserID derives a device-bound user identifier by hashing the
// machine id, the hostname and a random UUID. The caller persists the result
// so it is generated once per install.
func CreateDeviceUserID() string {
	hostname, _ := os.Hostname()
	seed := util.GetMachineID() + hostname + uuid.NewString()
	sum := sha256.Sum256([]byte(seed))
	id := base64.RawURLEncoding.EncodeToString(sum[:])
	return id[:DeviceUserIDLength]
}
