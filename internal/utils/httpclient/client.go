package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultUserAgent = "ProgressSync/1.0"

// Options 出站 HTTP 客户端参数
type Options struct {
	Timeout   time.Duration     // 整体请求超时，0 表示不限
	Proxy     string            // 代理地址，空则直连
	UserAgent string            // 为空时使用默认 UA
	Headers   map[string]string // 每个请求附带的固定头（如 Referer）
}

// NewHTTPClient 构建出站客户端（代理、超时、固定请求头、gzip 自动解压）
func NewHTTPClient(opts Options, logger *logrus.Logger) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        50,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			logger.WithError(err).WithField("proxy", opts.Proxy).Warn("代理地址解析失败，将不使用代理")
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.WithField("proxy", opts.Proxy).Info("HTTP客户端已配置代理")
		}
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &headerTransport{
			next:      transport,
			userAgent: ua,
			headers:   opts.Headers,
			logger:    logger,
		},
	}
}

// SecondsToDuration 配置中的秒数转 Duration，非正数视为不限
func SecondsToDuration(sec int) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}

type headerTransport struct {
	next      http.RoundTripper
	userAgent string
	headers   map[string]string
	logger    *logrus.Logger
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	for k, v := range t.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	// 显式声明 gzip 后标准库不再自动解压，需要自己处理
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Header.Get("Content-Encoding") != "gzip" {
		return resp, nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.logger.WithError(err).Warn("gzip解压失败，返回原始响应")
		return resp, nil
	}
	resp.Body = &gzipReadCloser{Reader: gz, body: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.ContentLength = -1
	return resp, nil
}

// gzipReadCloser 关闭时同时释放解压器与原始响应体
type gzipReadCloser struct {
	*gzip.Reader
	body io.ReadCloser
}

func (g *gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		_ = g.body.Close()
		return err
	}
	return g.body.Close()
}
