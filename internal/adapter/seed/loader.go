package seed

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"ProgressSync/internal/interfaces"
)

// FileLoader 从 CSV 文件读取题库种子（[编号, 标题, 难度, 通过率]）
type FileLoader struct {
	path string
}

var _ interfaces.CatalogSeeder = (*FileLoader)(nil)

func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load 读取全部记录（包括表头），列数不一致的行保留原样交由调用方判断
func (l *FileLoader) Load(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("打开题库种子文件失败: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析题库种子文件失败: %w, path: %s", err, l.path)
	}
	return records, nil
}

// Static 内存中的种子数据
type Static [][]string

func (s Static) Load(context.Context) ([][]string, error) {
	return s, nil
}
