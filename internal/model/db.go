package model

// AllModels 需要迁移的表（按外键依赖顺序）
func AllModels() []interface{} {
	return []interface{}{
		&Member{},
		&Schedule{},
		&Problem{},
		&ServerOperation{},
	}
}
