// Package push 维护到服务端的持久推送连接
// Package push keeps one authenticated WebSocket per device session and
// turns server envelopes into incremental sync triggers.
package push

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"
	"github.com/sleepyyui/notallyxo-sync-service/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// MaxReconnectAttempts 异常断开后的最大重连次数
	MaxReconnectAttempts = 5
	// ReconnectDelay 重连固定间隔
	ReconnectDelay = 5 * time.Second

	wsPath = "/ws/updates"
)

// TokenProvider 返回握手用的访问令牌
type TokenProvider func(ctx context.Context) (string, error)

// UpdateHandler 处理服务端推送的变更通知
type UpdateHandler interface {
	// HandleNoteUpdated 某条笔记在服务端被更新或分享给本设备
	HandleNoteUpdated(syncID string)
	// HandleNoteDeleted 某条笔记在服务端被删除
	HandleNoteDeleted(syncID string)
}

// ConnectionListener 连接状态监听器
type ConnectionListener interface {
	OnConnected()
	OnDisconnected(err error)
	OnError(err error)
}

// Channel 推送通道
type Channel struct {
	serverURL string
	tokens    TokenProvider
	handler   UpdateHandler
	logger    *zap.Logger

	mu        sync.Mutex
	conn      *gws.Conn
	connected bool
	attempts  int
	closed    bool
	listeners map[int]ConnectionListener
	nextID    int

	// dial 建立一次连接,测试可替换
	dial func(ctx context.Context) (*gws.Conn, error)
}

func NewChannel(serverURL string, tokens TokenProvider, handler UpdateHandler, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Channel{
		serverURL: serverURL,
		tokens:    tokens,
		handler:   handler,
		logger:    log,
		listeners: make(map[int]ConnectionListener),
	}
	c.dial = c.dialOnce
	return c
}

// wsURL 由服务器基础地址推导 WebSocket 地址
func (c *Channel) wsURL() string {
	u := strings.TrimRight(c.serverURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + wsPath
}

// Connect 建立连接并重置重连计数
// 已连接时是空操作
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.attempts = 0
	c.closed = false
	c.mu.Unlock()
	return c.connect(ctx)
}

func (c *Channel) connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		c.notifyError(err)
		c.scheduleReconnect(err)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.attempts = 0
	c.mu.Unlock()

	go conn.ReadLoop()
	c.notifyConnected()
	return nil
}

func (c *Channel) dialOnce(ctx context.Context) (*gws.Conn, error) {
	token, err := c.tokens(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "push: obtain token")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := gws.NewClient(&clientEvents{channel: c}, &gws.ClientOption{
		Addr:          c.wsURL(),
		RequestHeader: header,
	})
	if err != nil {
		return nil, errors.Wrap(err, "push: dial")
	}
	return conn, nil
}

// Disconnect 主动断开,不触发重连
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteClose(1000, nil)
	}
}

// Connected 当前是否在线
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Attempts 当前累计的重连尝试次数
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Ping 向服务端发送心跳文本,期待回应 "pong"
func (c *Channel) Ping() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("push: not connected")
	}
	return conn.WriteString(dto.PingMessage)
}

// AddListener 注册连接状态监听器,立即告知当前状态
// 返回的函数用于移除监听
func (c *Channel) AddListener(l ConnectionListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	connected := c.connected
	c.mu.Unlock()

	if connected {
		l.OnConnected()
	} else {
		l.OnDisconnected(nil)
	}

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Channel) snapshotListeners() []ConnectionListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ConnectionListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		out = append(out, l)
	}
	return out
}

func (c *Channel) notifyConnected() {
	for _, l := range c.snapshotListeners() {
		l.OnConnected()
	}
}

func (c *Channel) notifyDisconnected(err error) {
	for _, l := range c.snapshotListeners() {
		l.OnDisconnected(err)
	}
}

func (c *Channel) notifyError(err error) {
	for _, l := range c.snapshotListeners() {
		l.OnError(err)
	}
}

// scheduleReconnect 异常断开后按固定间隔重连
// 超过最大次数后放弃,直到下一次显式 Connect
func (c *Channel) scheduleReconnect(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	if attempt > MaxReconnectAttempts {
		c.logger.Warn("push reconnect attempts exhausted, giving up",
			zap.Int(logger.FieldAttempt, attempt-1),
			zap.Error(cause))
		return
	}

	c.logger.Info("scheduling push reconnect",
		zap.Int(logger.FieldAttempt, attempt),
		zap.Error(cause))

	time.AfterFunc(ReconnectDelay, func() {
		c.mu.Lock()
		skip := c.closed || c.connected
		c.mu.Unlock()
		if skip {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = c.connect(ctx)
	})
}

// handleEnvelope 处理一条服务端推送
func (c *Channel) handleEnvelope(payload []byte) {
	text := strings.TrimSpace(string(payload))
	if text == dto.PongMessage {
		return
	}

	var msg dto.UpdateMessage
	if err := sonic.Unmarshal(payload, &msg); err != nil {
		c.logger.Warn("malformed push envelope", zap.Error(err))
		return
	}

	switch msg.Type {
	case dto.NoteUpdated, dto.NoteShared:
		c.handler.HandleNoteUpdated(msg.SyncID)
	case dto.NoteDeleted:
		c.handler.HandleNoteDeleted(msg.SyncID)
	default:
		c.logger.Warn("unknown push envelope type",
			zap.String("type", string(msg.Type)),
			zap.String(logger.FieldSyncID, msg.SyncID))
	}
}

// clientEvents 适配 gws 事件回调
type clientEvents struct {
	gws.BuiltinEventHandler
	channel *Channel
}

func (e *clientEvents) OnClose(socket *gws.Conn, err error) {
	c := e.channel
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	if c.conn == socket {
		c.conn = nil
	}
	closed := c.closed
	c.mu.Unlock()

	if wasConnected {
		c.notifyDisconnected(err)
	}
	if err != nil && !closed {
		c.scheduleReconnect(err)
	}
}

func (e *clientEvents) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

func (e *clientEvents) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	data := message.Data.Bytes()
	buf := make([]byte, len(data))
	copy(buf, data)
	e.channel.handleEnvelope(buf)
}
