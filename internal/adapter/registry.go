package adapter

import (
	"fmt"

	"ProgressSync/internal/config"
	"ProgressSync/internal/interfaces"
	"ProgressSync/internal/model"

	"github.com/sirupsen/logrus"
)

// SourceRegistry 区服 -> 提交数据源实例
type SourceRegistry struct {
	logger  *logrus.Logger
	sources map[model.Region]interfaces.SubmissionSource
}

// NewSourceRegistry 按配置中的区服（leetcode.us / leetcode.cn）从工厂注册表创建数据源实例
func NewSourceRegistry(cfg *config.Config, logger *logrus.Logger) *SourceRegistry {
	r := &SourceRegistry{
		logger:  logger,
		sources: make(map[model.Region]interfaces.SubmissionSource),
	}
	for key, platformCfg := range cfg.LeetCode {
		region := model.ParseRegion(key)
		factory, ok := GetFactory(region)
		if !ok {
			logger.WithField("region", region).Error("未找到对应的工厂函数（init未注册？）")
			continue
		}
		pc := platformCfg
		src := factory(region, &pc, cfg.Sync.SubmissionLimit, logger)
		if src == nil {
			logger.WithField("region", region).Error("工厂函数返回nil数据源")
			continue
		}
		r.sources[region] = src
		logger.WithFields(logrus.Fields{"region": region, "base_url": pc.BaseURL}).Info("提交数据源初始化成功")
	}
	return r
}

// NewStaticRegistry 直接由实例构建（测试与自定义装配使用）
func NewStaticRegistry(logger *logrus.Logger, sources ...interfaces.SubmissionSource) *SourceRegistry {
	r := &SourceRegistry{logger: logger, sources: make(map[model.Region]interfaces.SubmissionSource)}
	for _, s := range sources {
		r.sources[s.GetRegion()] = s
	}
	return r
}

// Get 获取区服对应的数据源
func (r *SourceRegistry) Get(region model.Region) (interfaces.SubmissionSource, error) {
	src, ok := r.sources[region]
	if !ok {
		return nil, fmt.Errorf("区服%s未初始化数据源", region)
	}
	return src, nil
}

// Count 已初始化的数据源数量
func (r *SourceRegistry) Count() int {
	return len(r.sources)
}
