package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/client/api"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/conflict"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/mapper"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/push"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/scheduler"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/securekv"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/settings"
	"github.com/sleepyyui/notallyxo-sync-service/internal/client/store"
	clientsync "github.com/sleepyyui/notallyxo-sync-service/internal/client/sync"
	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type clientFlags struct {
	server     string // 服务器地址
	authKey    string // 设备凭证
	passphrase string // 内容加密口令
	dataDir    string // 客户端数据目录
	interval   int    // 周期同步间隔（分钟）
	wifiOnly   bool   // 仅允许 Wi-Fi 同步
}

// pushHandler 把推送通知映射到编排器入口
type pushHandler struct {
	orch   *clientsync.Orchestrator
	logger *zap.Logger
}

func (h *pushHandler) HandleNoteUpdated(syncID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), api.SyncRoundTimeout)
		defer cancel()
		if err := h.orch.IncrementalSync(ctx, syncID); err != nil {
			h.logger.Warn("incremental sync failed",
				zap.String(logger.FieldSyncID, syncID),
				zap.Error(err))
		}
	}()
}

func (h *pushHandler) HandleNoteDeleted(syncID string) {
	if err := h.orch.RemoveLocal(syncID); err != nil {
		h.logger.Warn("removing pushed deletion failed",
			zap.String(logger.FieldSyncID, syncID),
			zap.Error(err))
	}
}

func init() {
	flags := new(clientFlags)

	var clientCommand = &cobra.Command{
		Use:   "client [-s server_url] [--data-dir dir]",
		Short: "Run sync client daemon",
		Run: func(cmd *cobra.Command, args []string) {
			lg := bootstrapLogger

			if err := os.MkdirAll(flags.dataDir, 0754); err != nil {
				lg.Error("failed to create data directory", zap.Error(err))
				return
			}

			kv, err := securekv.OpenFileStore(filepath.Join(flags.dataDir, "secure.db"))
			if err != nil {
				lg.Error("failed to open secure store", zap.Error(err))
				return
			}
			defer kv.Close()

			settingsMgr := settings.NewManager(kv)
			if err := applyClientFlags(settingsMgr, flags); err != nil {
				lg.Error("failed to persist settings", zap.Error(err))
				return
			}
			if !settingsMgr.Configured() {
				lg.Error("client is not configured: server url, auth key and encryption salt are required")
				return
			}

			conflicts, err := conflict.Open(filepath.Join(flags.dataDir, "conflicts.db"), lg)
			if err != nil {
				lg.Error("failed to open conflict store", zap.Error(err))
				return
			}
			defer conflicts.Close()

			notes := store.NewMemoryStore()
			orch := clientsync.NewOrchestrator(settingsMgr, notes, conflicts, mapper.New(lg), nil, lg)

			// 状态变化打到日志,外部工具可以观察
			statusCh, cancelStatus := orch.SubscribeStatus()
			defer cancelStatus()
			go func() {
				for s := range statusCh {
					lg.Info("sync status", zap.String(logger.FieldState, string(s)))
				}
			}()

			// 冲突数量变化同样可观察
			conflictCh, cancelConflicts := conflicts.Subscribe()
			defer cancelConflicts()
			go func() {
				for snapshot := range conflictCh {
					if len(snapshot) > 0 {
						lg.Warn("unresolved conflicts", zap.Int(logger.FieldCount, len(snapshot)))
					}
				}
			}()

			serverURL, _ := settingsMgr.ServerURL()
			channel := push.NewChannel(serverURL, clientTokenProvider(settingsMgr), &pushHandler{orch: orch, logger: lg}, lg)
			if err := channel.Connect(context.Background()); err != nil {
				lg.Warn("push channel connect failed, reconnect scheduled", zap.Error(err))
			}
			defer channel.Disconnect()

			sched := scheduler.New(orch, nil, lg)
			constraints := scheduler.Constraints{NetworkType: scheduler.NetworkAny}
			if settingsMgr.WifiOnly() {
				constraints.NetworkType = scheduler.NetworkWifi
			}
			if err := sched.SchedulePeriodic(time.Duration(flags.interval)*time.Minute, constraints, scheduler.PolicyReplace); err != nil {
				lg.Error("failed to schedule periodic sync", zap.Error(err))
				return
			}
			sched.Start()
			defer sched.Stop()

			// 启动时先跑一轮
			go sched.SyncNow(context.Background())

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			lg.Info("client daemon shutting down")
		},
	}

	rootCmd.AddCommand(clientCommand)
	fs := clientCommand.Flags()
	fs.StringVarP(&flags.server, "server", "s", "", "server base url, e.g. https://sync.example.com")
	fs.StringVarP(&flags.authKey, "auth-key", "k", "", "device credential")
	fs.StringVarP(&flags.passphrase, "passphrase", "e", "", "content encryption passphrase")
	fs.StringVar(&flags.dataDir, "data-dir", "storage/client", "client data directory")
	fs.IntVar(&flags.interval, "interval", 60, "periodic sync interval in minutes")
	fs.BoolVar(&flags.wifiOnly, "wifi-only", false, "sync only on wifi")
}

// applyClientFlags 把命令行参数写入安全存储,空参数保留已有配置
func applyClientFlags(m *settings.Manager, flags *clientFlags) error {
	if flags.server != "" {
		if err := m.SetServerURL(flags.server); err != nil {
			return err
		}
	}
	if flags.authKey != "" {
		if err := m.SetAuthToken(flags.authKey); err != nil {
			return err
		}
	}
	if flags.passphrase != "" {
		if err := m.SetPassphrase(flags.passphrase); err != nil {
			return err
		}
	}
	if err := m.SetWifiOnly(flags.wifiOnly); err != nil {
		return err
	}
	// 加密盐在首次运行生成并固定下来
	_, err := m.EnsureEncryptionSalt()
	return err
}

// clientTokenProvider 每次握手用设备凭证换取访问令牌
func clientTokenProvider(m *settings.Manager) push.TokenProvider {
	return func(ctx context.Context) (string, error) {
		serverURL, err := m.ServerURL()
		if err != nil {
			return "", err
		}
		deviceID, err := m.DeviceUserID()
		if err != nil {
			return "", err
		}
		authKey, err := m.AuthToken()
		if err != nil {
			return "", err
		}

		c := api.NewClient(serverURL, "")
		resp, err := c.AuthToken(ctx, &dto.AuthTokenRequest{
			UserID:  deviceID,
			AuthKey: authKey,
		})
		if err != nil {
			return "", err
		}
		return resp.Token, nil
	}
}
