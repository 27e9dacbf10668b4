package peer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"peersync/pkg/document"
)

// 传输错误分类，kind 决定任务层的重试与终止语义
const (
	KindAuth     = "auth"
	KindNotFound = "not-found"
	KindServer   = "server"
	KindNetwork  = "network"
	KindFormat   = "format"
	KindTimeout  = "timeout"
)

type TransportError struct {
	Kind       string
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport error (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("transport error (%s): %s", e.Kind, e.Message)
}

// Retriable 5xx、网络与超时错误可重试；4xx 与格式错误对本次任务是致命的
func (e *TransportError) Retriable() bool {
	return e.Kind == KindServer || e.Kind == KindNetwork || e.Kind == KindTimeout
}

// Identity 注册握手时交换的节点身份
type Identity struct {
	Uuid    string `json:"uuid"`
	Name    string `json:"name"`
	BaseUrl string `json:"base_url"`
}

type Client struct {
	baseUrl    *url.URL
	httpClient *http.Client
	username   string
	password   string
}

// NewClient 创建指向一个远端仓库的客户端。proxyURL 为空时走环境变量代理
func NewClient(baseURL, username, password, proxyURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	proxy := http.ProxyFromEnvironment
	if proxyURL != "" {
		p, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		proxy = http.ProxyURL(p)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseUrl: base,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           proxy,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		username: username,
		password: password,
	}, nil
}

// Fetch 拉取远端在 since 之后修改过的记录。since 为 nil 表示全量拉取
func (c *Client) Fetch(ctx context.Context, resource string, since *time.Time) (*document.Document, error) {
	endpoint := c.baseUrl.JoinPath("/sync", resource)
	if since != nil {
		q := endpoint.Query()
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
		endpoint.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &TransportError{Kind: KindNetwork, Message: err.Error()}
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	doc, err := document.Decode(body)
	if err != nil {
		return nil, &TransportError{Kind: KindFormat, Message: err.Error()}
	}
	return doc, nil
}

// Send 推送本地变更，返回对端的逐记录处理结果
func (c *Client) Send(ctx context.Context, resource string, doc *document.Document) (*document.OutcomeDocument, error) {
	data, err := doc.Marshal()
	if err != nil {
		return nil, &TransportError{Kind: KindFormat, Message: err.Error()}
	}

	endpoint := c.baseUrl.JoinPath("/sync", resource).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Kind: KindNetwork, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	outcome, err := document.DecodeOutcome(body)
	if err != nil {
		return nil, &TransportError{Kind: KindFormat, Message: err.Error()}
	}
	return outcome, nil
}

// Register 一次性双向注册：把本节点身份告知对端，换回对端身份
func (c *Client) Register(ctx context.Context, identity Identity) (*Identity, error) {
	data, err := json.Marshal(identity)
	if err != nil {
		return nil, &TransportError{Kind: KindFormat, Message: err.Error()}
	}

	endpoint := c.baseUrl.JoinPath("/sync/register").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Kind: KindNetwork, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	remote := new(Identity)
	if err := json.Unmarshal(body, remote); err != nil {
		return nil, &TransportError{Kind: KindFormat, Message: err.Error()}
	}
	return remote, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyNetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Kind: KindNetwork, Message: err.Error()}
	}

	if resp.StatusCode >= 400 {
		// 尝试从应答体里提取错误消息
		message := string(body)
		var errResp struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			message = errResp.Message
		}
		return nil, &TransportError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}
	return body, nil
}

func classifyStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindFormat
	}
}

func classifyNetworkError(err error) *TransportError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: KindTimeout, Message: err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: KindTimeout, Message: err.Error()}
	}
	return &TransportError{Kind: KindNetwork, Message: err.Error()}
}
