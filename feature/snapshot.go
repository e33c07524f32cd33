package feature

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/conv"
)

// 快照文件的 ID 列名
const (
	ItemIDHeader = "id"
	UserIDHeader = "user_id"
)

// WriteCSV 把矩阵写成扁平表格：首列为 ID，其后为数值特征列。
func WriteCSV(w io.Writer, idHeader string, m *Matrix) error {
	cw := csv.NewWriter(w)
	header := append([]string{idHeader}, m.Columns()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(header))
	for i := 0; i < m.Len(); i++ {
		id, row := m.At(i)
		record[0] = id
		for j, v := range row {
			record[j+1] = conv.FormatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", id, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV 读取 WriteCSV 生成的快照。
//
// 重新加载的列是字符串，这里逐格转回数值，无法解析的单元格按 0 处理；
// ID 为空或为 "nan" 的行被丢弃；重复 ID 保留第一行。
func ReadCSV(r io.Reader) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.ErrMatrixMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 {
		return nil, core.ErrMatrixMissing
	}
	columns := make([]string, len(header)-1)
	copy(columns, header[1:])
	m := NewMatrix(columns)

	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		id := core.CanonicalID(record[0])
		if id == "" || strings.EqualFold(id, "nan") {
			continue
		}
		row := make([]float64, len(columns))
		for j := range columns {
			if j+1 < len(record) {
				row[j] = conv.ParseCell(record[j+1])
			}
		}
		if _, err := m.Add(id, row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return m, nil
}

// LoadCSVFile 从文件读取快照；文件不存在时返回 core.ErrMatrixMissing。
func LoadCSVFile(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.ErrMatrixMissing.Wrap(err)
		}
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// SaveCSVFile 把快照写入文件：先写临时文件再重命名，读者不会看到写了一半的快照。
func SaveCSVFile(path, idHeader string, m *Matrix) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, idHeader, m); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
