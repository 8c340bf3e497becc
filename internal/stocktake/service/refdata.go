package service

import (
	"go.uber.org/zap"

	"github.com/xuri/excelize/v2"
)

// 工作簿不可用时的内置基础数据规模
const (
	defaultWarehouseCount = 6
	defaultCategoryCount  = 30
)

// RefDataReader 从基础数据工作簿读取覆盖规模：
// 支持的仓库数与品规类别数。读不到就退回内置默认值
type RefDataReader struct {
	warehousePath string
	categoryPath  string
	logger        *zap.Logger
}

// NewRefDataReader 创建基础数据读取器
func NewRefDataReader(warehousePath, categoryPath string, logger *zap.Logger) *RefDataReader {
	return &RefDataReader{
		warehousePath: warehousePath,
		categoryPath:  categoryPath,
		logger:        logger,
	}
}

// Counts 返回(仓库数, 类别数)
func (r *RefDataReader) Counts() (int, int) {
	warehouses := r.distinctFirstColumn(r.warehousePath, defaultWarehouseCount)
	categories := r.dataRowCount(r.categoryPath, defaultCategoryCount)
	return warehouses, categories
}

// distinctFirstColumn 首列去重计数，跳过表头行
func (r *RefDataReader) distinctFirstColumn(path string, fallback int) int {
	rows, ok := r.readRows(path)
	if !ok {
		return fallback
	}
	seen := make(map[string]struct{})
	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue
		}
		seen[row[0]] = struct{}{}
	}
	if len(seen) == 0 {
		return fallback
	}
	return len(seen)
}

// dataRowCount 数据行计数，跳过表头行
func (r *RefDataReader) dataRowCount(path string, fallback int) int {
	rows, ok := r.readRows(path)
	if !ok {
		return fallback
	}
	count := 0
	for i, row := range rows {
		if i == 0 || len(row) == 0 || row[0] == "" {
			continue
		}
		count++
	}
	if count == 0 {
		return fallback
	}
	return count
}

func (r *RefDataReader) readRows(path string) ([][]string, bool) {
	if path == "" {
		return nil, false
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		r.logger.Debug("打开基础数据工作簿失败", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, false
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		r.logger.Warn("读取基础数据工作簿失败", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	return rows, true
}
