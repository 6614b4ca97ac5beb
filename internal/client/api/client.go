// Package api 封装服务端 REST 接口
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sleepyyui/notallyxo-sync-service/internal/dto"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

const (
	// ConnectTimeout 建立连接超时
	ConnectTimeout = 15 * time.Second
	// ReadWriteTimeout 单次请求读写超时
	ReadWriteTimeout = 30 * time.Second
	// SyncRoundTimeout 一次完整同步回合的上限
	SyncRoundTimeout = 120 * time.Second

	basePath = "/api/v1"
)

// envelope 服务端统一响应格式
type envelope struct {
	Code    int             `json:"code"`
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details string          `json:"details"`
}

// Error 服务端返回的业务错误
type Error struct {
	HTTPStatus int
	Code       int
	Message    string
	Details    string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api: %s (code %d): %s", e.Message, e.Code, e.Details)
	}
	return fmt.Sprintf("api: %s (code %d)", e.Message, e.Code)
}

// IsAuthError 凭证无效或缺失
func (e *Error) IsAuthError() bool {
	return e.Code >= 20001 && e.Code <= 20004
}

// IsTransient 判断错误是否属于可重试的网络类错误
// 认证、校验等业务错误不可重试
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Client REST 客户端，持有基础地址与凭证
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: ConnectTimeout,
				}).DialContext,
				TLSHandshakeTimeout:   ConnectTimeout,
				ResponseHeaderTimeout: ReadWriteTimeout,
			},
		},
	}
}

// SetToken 更新凭证，认证成功后调用
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL 服务器基础地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AuthToken 校验设备凭证，必要时自动注册
func (c *Client) AuthToken(ctx context.Context, params *dto.AuthTokenRequest) (*dto.AuthTokenResponse, error) {
	var out dto.AuthTokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/token", nil, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncStatus 连通性探测
func (c *Client) SyncStatus(ctx context.Context) (*dto.SyncStatusResponse, error) {
	var out dto.SyncStatusResponse
	if err := c.do(ctx, http.MethodGet, "/sync/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile 获取当前用户资料
func (c *Client) Profile(ctx context.Context) (*dto.UserProfileResponse, error) {
	var out dto.UserProfileResponse
	if err := c.do(ctx, http.MethodGet, "/users/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncNotes 提交一批变更并拉取服务端变更
// 服务端报告冲突时仍返回响应体,由调用方处理冲突列表
func (c *Client) SyncNotes(ctx context.Context, since int64, req *dto.SyncRequest) (*dto.SyncResponse, error) {
	q := url.Values{"changed_since": {strconv.FormatInt(since, 10)}}
	var out dto.SyncResponse
	err := c.do(ctx, http.MethodPost, "/sync", q, req, &out)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Code == 30005 && len(out.Conflicts) > 0 {
			return &out, nil
		}
		return nil, err
	}
	return &out, nil
}

// GetNote 拉取单条笔记
func (c *Client) GetNote(ctx context.Context, syncID string) (*dto.NoteDto, error) {
	var out dto.NoteDto
	if err := c.do(ctx, http.MethodGet, "/notes/"+url.PathEscape(syncID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpsertNote 上传单条笔记
func (c *Client) UpsertNote(ctx context.Context, syncID string, params *dto.NoteUpsertRequest) (*dto.NoteDto, error) {
	var out dto.NoteDto
	if err := c.do(ctx, http.MethodPut, "/notes/"+url.PathEscape(syncID), nil, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteNote 删除单条笔记，仅所有者可调用
func (c *Client) DeleteNote(ctx context.Context, syncID string) error {
	return c.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(syncID), nil, nil, nil)
}

// listPageSize 列表拉取的单页大小,与服务端上限一致
const listPageSize = 100

// ListNotes 拉取基线之后的变更,逐页迭代直到取完
func (c *Client) ListNotes(ctx context.Context, since int64) ([]dto.NoteDto, error) {
	var all []dto.NoteDto
	for page := 1; ; page++ {
		q := url.Values{
			"since":    {strconv.FormatInt(since, 10)},
			"page":     {strconv.Itoa(page)},
			"pageSize": {strconv.Itoa(listPageSize)},
		}
		var out struct {
			List  []dto.NoteDto `json:"list"`
			Pager struct {
				Page      int `json:"page"`
				PageSize  int `json:"pageSize"`
				TotalRows int `json:"totalRows"`
			} `json:"pager"`
		}
		if err := c.do(ctx, http.MethodGet, "/notes", q, nil, &out); err != nil {
			return nil, err
		}
		all = append(all, out.List...)
		if len(out.List) == 0 || len(all) >= out.Pager.TotalRows {
			return all, nil
		}
	}
}

// ShareNote 直接分享给指定用户
func (c *Client) ShareNote(ctx context.Context, syncID string, params *dto.ShareNoteRequest) error {
	return c.do(ctx, http.MethodPost, "/notes/"+url.PathEscape(syncID)+"/share", nil, params, nil)
}

// CreateSharingToken 创建一次性分享令牌
func (c *Client) CreateSharingToken(ctx context.Context, syncID, accessLevel string, expiryTime int64) (*dto.SharingTokenResponse, error) {
	q := url.Values{}
	if accessLevel != "" {
		q.Set("access_level", accessLevel)
	}
	if expiryTime > 0 {
		q.Set("expiry_time", strconv.FormatInt(expiryTime, 10))
	}
	var out dto.SharingTokenResponse
	if err := c.do(ctx, http.MethodPost, "/notes/"+url.PathEscape(syncID)+"/sharing-token", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptShare 兑换分享令牌
func (c *Client) AcceptShare(ctx context.Context, token string) (*dto.AcceptShareResponse, error) {
	q := url.Values{"token": {token}}
	var out dto.AcceptShareResponse
	if err := c.do(ctx, http.MethodPost, "/shared/accept", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + basePath + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "api: marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return errors.Wrap(err, "api: build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return errors.Wrap(err, "api: read response")
	}

	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return errors.Wrapf(err, "api: malformed response (http %d)", resp.StatusCode)
	}

	if out != nil && len(env.Data) > 0 {
		if err := sonic.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, "api: decode response data")
		}
	}

	if !env.Status {
		return &Error{
			HTTPStatus: resp.StatusCode,
			Code:       env.Code,
			Message:    env.Message,
			Details:    env.Details,
		}
	}
	return nil
}
