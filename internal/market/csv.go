package market

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// requiredColumns 是CSV必须提供的列，顺序即导出顺序。
var requiredColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadCSV 读取OHLCV数据文件并按时间升序返回K线。
// 列按表头定位，多余列会被忽略；时间与数值列解析失败时直接报错。
func LoadCSV(path string) ([]Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("market: 打开CSV失败: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("market: 读取CSV失败: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("market: CSV文件为空: %s", path)
	}

	colIndex := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		colIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := colIndex[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("market: CSV缺少必需列: %v", missing)
	}

	bars := make([]Bar, 0, len(records)-1)
	for rowNum, record := range records[1:] {
		line := rowNum + 2
		ts, err := parseTimestamp(record[colIndex["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("market: 第 %d 行 timestamp 非法: %w", line, err)
		}
		bar := Bar{Timestamp: ts}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"open", &bar.Open},
			{"high", &bar.High},
			{"low", &bar.Low},
			{"close", &bar.Close},
			{"volume", &bar.Volume},
		} {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[colIndex[field.name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("market: 第 %d 行 %s 列数值非法: %w", line, field.name, err)
			}
			*field.dst = value
		}
		bars = append(bars, bar)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	return bars, nil
}

// parseTimestamp 兼容RFC3339、常见日期格式以及毫秒/秒级时间戳。
func parseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("时间字段为空")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	if epoch, err := strconv.ParseInt(value, 10, 64); err == nil {
		if epoch >= 1e12 {
			return time.UnixMilli(epoch).UTC(), nil
		}
		return time.Unix(epoch, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("无法识别时间格式 %q", value)
}

// WriteCSV 将K线写出为标准OHLCV文件，时间使用RFC3339。
func WriteCSV(path string, bars []Bar) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("market: 创建数据目录失败: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("market: 创建CSV失败: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(requiredColumns); err != nil {
		return fmt.Errorf("market: 写入表头失败: %w", err)
	}
	for _, bar := range bars {
		record := []string{
			bar.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			formatFloat(bar.Volume),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("market: 写入K线失败: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("market: 刷新CSV失败: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
