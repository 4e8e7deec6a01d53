package sheets

import (
	"context"
	"fmt"

	"ProgressSync/internal/config"
	"ProgressSync/internal/interfaces"
	"ProgressSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Adapter Google Sheet 报名表数据源（只读，API Key 访问）
type Adapter struct {
	cfg    config.SheetsConfig
	svc    *gsheets.Service
	logger *logrus.Logger
}

var _ interfaces.ScheduleSource = (*Adapter)(nil)

// NewAdapter 创建报名表数据源；extra 用于追加 ClientOption（如测试时的 WithEndpoint）
func NewAdapter(ctx context.Context, cfg config.SheetsConfig, logger *logrus.Logger, extra ...option.ClientOption) (*Adapter, error) {
	httpClient := httpclient.NewHTTPClient(httpclient.Options{
		Timeout: httpclient.SecondsToDuration(cfg.Timeout),
		Proxy:   cfg.Proxy,
	}, logger)

	// 使用自定义 HTTP 客户端时 WithAPIKey 不生效，API Key 在请求时以 key 参数附带
	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, extra...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建Sheets服务失败: %w", err)
	}
	return &Adapter{cfg: cfg, svc: svc, logger: logger}, nil
}

// FetchRows 读取整张报名表（含表头）；任何失败记录日志并返回 nil
func (a *Adapter) FetchRows(ctx context.Context) [][]string {
	if a.cfg.SpreadsheetID == "" {
		a.logger.Warn("未配置报名表ID，跳过拉取")
		return nil
	}
	call := a.svc.Spreadsheets.Values.Get(a.cfg.SpreadsheetID, a.cfg.Range).Context(ctx)
	var callOpts []googleapi.CallOption
	if a.cfg.APIKey != "" {
		callOpts = append(callOpts, googleapi.QueryParameter("key", a.cfg.APIKey))
	}
	resp, err := call.Do(callOpts...)
	if err != nil {
		a.logger.WithError(err).WithField("spreadsheet_id", a.cfg.SpreadsheetID).Error("拉取报名表失败")
		return nil
	}
	rows := toStrings(resp.Values)
	a.logger.WithField("rows", len(rows)).Info("报名表拉取完成")
	return rows
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			if cell == nil {
				continue
			}
			if s, ok := cell.(string); ok {
				row[i] = s
			} else {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
