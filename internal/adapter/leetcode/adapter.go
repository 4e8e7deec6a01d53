package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"ProgressSync/internal/adapter"
	"ProgressSync/internal/config"
	"ProgressSync/internal/interfaces"
	"ProgressSync/internal/model"
	"ProgressSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultLimit = 15

const recentAcQuery = `
query recentAcSubmissions($username: String!, $limit: Int!) {
  recentAcSubmissionList(username: $username, limit: $limit) {
    id
    title
    titleSlug
    timestamp
  }
}`

// operation 一个 GraphQL 操作：查询文本 + 结果所在的 data 字段
type operation struct {
	query    string
	dataKey  string
	useLimit bool
}

var operations = map[string]operation{
	model.OperationRecentAC: {query: recentAcQuery, dataKey: "recentAcSubmissionList", useLimit: true},
}

func init() {
	adapter.Register(model.RegionUS, NewAdapter)
	adapter.Register(model.RegionCN, NewAdapter)
}

type Adapter struct {
	region     model.Region
	cfg        *config.PlatformConfig
	limit      int
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewAdapter 创建某个区服的 GraphQL 数据源
func NewAdapter(region model.Region, cfg *config.PlatformConfig, limit int, logger *logrus.Logger) interfaces.SubmissionSource {
	if limit <= 0 {
		limit = defaultLimit
	}
	origin := strings.TrimSuffix(cfg.BaseURL, "/graphql")
	return &Adapter{
		region: region,
		cfg:    cfg,
		limit:  limit,
		httpClient: httpclient.NewHTTPClient(httpclient.Options{
			Timeout: httpclient.SecondsToDuration(cfg.Timeout),
			Proxy:   cfg.Proxy,
			Headers: map[string]string{"Referer": origin, "Content-Type": "application/json"},
		}, logger),
		logger: logger,
	}
}

func (a *Adapter) GetRegion() model.Region {
	return a.region
}

// FetchRecentSubmissions 并发执行全部 GraphQL 操作，全部完成后返回。
// 单个操作失败只记录日志，结果中不包含该操作
func (a *Adapter) FetchRecentSubmissions(ctx context.Context, username string) model.SubmissionFeed {
	feed := make(model.SubmissionFeed, len(operations))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for name, op := range operations {
		name, op := name, op
		g.Go(func() error {
			subs, err := a.fetchOperation(gctx, username, name, op)
			if err != nil {
				a.logger.WithError(err).WithFields(logrus.Fields{
					"region":    a.region,
					"username":  username,
					"operation": name,
				}).Error("拉取LeetCode提交记录失败")
				return nil
			}
			mu.Lock()
			feed[name] = subs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return feed
}

type graphQLRequest struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (a *Adapter) fetchOperation(ctx context.Context, username, name string, op operation) ([]model.Submission, error) {
	vars := map[string]interface{}{"username": username}
	if op.useLimit {
		vars["limit"] = a.limit
	}
	payload, err := json.Marshal(graphQLRequest{Query: op.query, Variables: vars, OperationName: name})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("非预期状态码 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("GraphQL错误: %s", out.Errors[0].Message)
	}
	raw, ok := out.Data[op.dataKey]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("响应缺少字段 %s", op.dataKey)
	}
	var subs []model.Submission
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", op.dataKey, err)
	}
	return subs, nil
}
