package adapter

import (
	"fmt"
	"sort"

	"ProgressSync/internal/interfaces"
	"ProgressSync/internal/model"

	"github.com/sirupsen/logrus"
)

// 区服 -> 提交数据源工厂函数，由各适配器 init 注册
var factoryRegistry = make(map[model.Region]interfaces.Factory)

// Register 供适配器 init 函数调用，注册区服对应的工厂函数
func Register(region model.Region, factory interfaces.Factory) {
	if factory == nil {
		panic(fmt.Sprintf("区服%s的工厂函数不能为nil", region))
	}
	if _, exists := factoryRegistry[region]; exists {
		logrus.Warnf("区服%s的数据源已注册，将覆盖原有实现", region)
	}
	factoryRegistry[region] = factory
}

// GetFactory 获取指定区服的工厂函数
func GetFactory(region model.Region) (interfaces.Factory, bool) {
	factory, ok := factoryRegistry[region]
	return factory, ok
}

// ListFactories 已注册工厂的区服列表（有序）
func ListFactories() []model.Region {
	regions := make([]model.Region, 0, len(factoryRegistry))
	for r := range factoryRegistry {
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i] < regions[j] })
	return regions
}
