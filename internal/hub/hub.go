// Package hub Per-user WebSocket connection registry and push fan-out
// Package hub 按用户维护 WebSocket 连接并负责推送消息
package hub

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/app"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/workerpool"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/lxzan/gws"
	"go.uber.org/zap"
)

const (
	// PingInterval 服务端主动 Ping 的间隔（秒）
	PingInterval = 25
	// PingWait 距上次活动超过该秒数则判定连接失活
	PingWait = 40
)

// Session 单个已认证的 WebSocket 连接
type Session struct {
	conn   *gws.Conn
	done   chan struct{}
	UserID string
	UID    int64
}

type connSet = map[*gws.Conn]*Session

// Hub 连接注册表，按 userId 分组做消息扇出
type Hub struct {
	mu       sync.Mutex
	sessions connSet
	users    map[string]connSet

	up     *gws.Upgrader
	tokens app.TokenManager
	pool   *workerpool.Pool
	logger *zap.Logger
}

// NewHub 创建 Hub，fan-out 通过 worker pool 限制并发
func NewHub(tokens app.TokenManager, pool *workerpool.Pool, logger *zap.Logger) *Hub {
	h := &Hub{
		sessions: make(connSet),
		users:    make(map[string]connSet),
		tokens:   tokens,
		pool:     pool,
		logger:   logger,
	}
	h.up = gws.NewUpgrader(h, &gws.ServerOption{
		ParallelEnabled:  true,
		Recovery:         gws.Recovery,
		PermessageDeflate: gws.PermessageDeflate{Enabled: true},
	})
	return h
}

// Run 返回升级 WebSocket 连接的 gin 处理函数
// 认证在握手阶段完成：Authorization: Bearer <token> 或 ?token=
func (h *Hub) Run() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if auth := c.GetHeader("Authorization"); auth != "" {
			token = strings.TrimPrefix(auth, "Bearer ")
		}

		user, err := h.tokens.Parse(token)
		if err != nil {
			h.logger.Warn("hub: handshake auth failed", zap.Error(err))
			c.AbortWithStatus(401)
			return
		}

		socket, err := h.up.Upgrade(c.Writer, c.Request)
		if err != nil {
			h.logger.Error("hub: upgrade failed", zap.Error(err))
			return
		}

		sess := &Session{
			conn:   socket,
			done:   make(chan struct{}),
			UserID: user.UserID,
			UID:    user.UID,
		}
		h.add(sess)
		h.logger.Info("hub: user connected",
			zap.String("userId", sess.UserID), zap.Int("count", h.Count()))

		go sess.pingLoop(h.logger)
		go socket.ReadLoop()
	}
}

func (s *Session) pingLoop(logger *zap.Logger) {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WritePing(nil); err != nil {
				logger.Warn("hub: ping failed", zap.String("userId", s.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.conn] = s
	if h.users[s.UserID] == nil {
		h.users[s.UserID] = make(connSet)
	}
	h.users[s.UserID][s.conn] = s
}

func (h *Hub) remove(conn *gws.Conn) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[conn]
	if !ok {
		return nil
	}
	delete(h.sessions, conn)
	delete(h.users[s.UserID], conn)
	if len(h.users[s.UserID]) == 0 {
		delete(h.users, s.UserID)
	}
	return s
}

// Count 当前连接总数
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// UserCount 当前在线用户数
func (h *Hub) UserCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users)
}

// NotifyUsers 向一组用户广播更新消息，except 指定的连接不收自己触发的推送
// Fan-out 任务提交到 worker pool，慢连接不会阻塞请求路径
func (h *Hub) NotifyUsers(userIDs []string, msg *dto.UpdateMessage, except *gws.Conn) {
	payload, err := sonic.Marshal(msg)
	if err != nil {
		h.logger.Error("hub: marshal update failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	conns := make([]*gws.Conn, 0, 8)
	seen := make(map[*gws.Conn]struct{})
	for _, uid := range userIDs {
		for conn := range h.users[uid] {
			if conn == except {
				continue
			}
			if _, ok := seen[conn]; ok {
				continue
			}
			seen[conn] = struct{}{}
			conns = append(conns, conn)
		}
	}
	h.mu.Unlock()

	if len(conns) == 0 {
		return
	}

	if err := h.pool.SubmitAsync(context.Background(), func(ctx context.Context) error {
		b := gws.NewBroadcaster(gws.OpcodeText, payload)
		defer b.Close()
		for _, conn := range conns {
			_ = b.Broadcast(conn)
		}
		return nil
	}); err != nil {
		h.logger.Warn("hub: fan-out dropped", zap.Int("conns", len(conns)), zap.Error(err))
	}
}

// NotifyNoteUpdate 服务层通知入口，向用户的全部在线设备推送
func (h *Hub) NotifyNoteUpdate(userIDs []string, updateType dto.UpdateType, syncID string) {
	h.NotifyUsers(userIDs, &dto.UpdateMessage{Type: updateType, SyncID: syncID}, nil)
}

// OnOpen gws 事件：连接建立
func (h *Hub) OnOpen(conn *gws.Conn) {
	_ = conn.SetDeadline(time.Now().Add(PingWait * time.Second))
}

// OnClose gws 事件：连接关闭
func (h *Hub) OnClose(conn *gws.Conn, err error) {
	s := h.remove(conn)
	if s == nil {
		return
	}
	close(s.done)
	h.logger.Info("hub: user disconnected",
		zap.String("userId", s.UserID), zap.Int("count", h.Count()))
}

// OnPing gws 事件：收到协议层 Ping
func (h *Hub) OnPing(conn *gws.Conn, payload []byte) {
	_ = conn.SetDeadline(time.Now().Add(PingWait * time.Second))
	_ = conn.WritePong(nil)
}

// OnPong gws 事件：收到协议层 Pong
func (h *Hub) OnPong(conn *gws.Conn, payload []byte) {
	_ = conn.SetDeadline(time.Now().Add(PingWait * time.Second))
}

// OnMessage gws 事件：文本帧，目前仅支持 ping -> pong 心跳
func (h *Hub) OnMessage(conn *gws.Conn, message *gws.Message) {
	defer message.Close()
	if message.Opcode != gws.OpcodeText {
		return
	}
	_ = conn.SetDeadline(time.Now().Add(PingWait * time.Second))

	switch message.Data.String() {
	case dto.PingMessage:
		_ = conn.WriteMessage(gws.OpcodeText, []byte(dto.PongMessage))
	case "close":
		_ = conn.WriteClose(1000, []byte("ClientClose"))
	}
}
