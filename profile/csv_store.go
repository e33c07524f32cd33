package profile

import (
	"context"
	"errors"
	"sync"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
)

// CSVStore 把画像保存为扁平表格文件（user_id + 特征列）。
//
// SaveProfiles 会与已有文件合并：同一用户的旧行被替换，列不同的旧行按列名投影到新列上。
type CSVStore struct {
	Path string

	mu sync.Mutex
}

// NewCSVStore 创建基于文件的画像存储。
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{Path: path}
}

func (s *CSVStore) GetProfile(_ context.Context, userID string) (*core.ProfileVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := feature.LoadCSVFile(s.Path)
	if err != nil {
		if errors.Is(err, core.ErrMatrixMissing) {
			return nil, core.ErrProfileNotFound.Wrap(err)
		}
		return nil, err
	}
	row, ok := m.Row(userID)
	if !ok {
		return nil, core.ErrProfileNotFound
	}
	values := make([]float64, len(row))
	copy(values, row)
	cols := make([]string, m.Width())
	copy(cols, m.Columns())
	return &core.ProfileVector{UserID: core.CanonicalID(userID), Columns: cols, Values: values}, nil
}

func (s *CSVStore) SaveProfiles(_ context.Context, profiles []*core.ProfileVector) error {
	if len(profiles) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	columns := profiles[0].Columns
	out := feature.NewMatrix(columns)
	for _, p := range profiles {
		if _, err := out.Add(p.UserID, p.Project(columns)); err != nil {
			return err
		}
	}

	existing, err := feature.LoadCSVFile(s.Path)
	switch {
	case err == nil:
		for i := 0; i < existing.Len(); i++ {
			id, row := existing.At(i)
			old := &core.ProfileVector{UserID: id, Columns: existing.Columns(), Values: row}
			// 新画像优先，Add 对已存在的 ID 不做任何事
			if _, err := out.Add(id, old.Project(columns)); err != nil {
				return err
			}
		}
	case errors.Is(err, core.ErrMatrixMissing):
	default:
		return err
	}
	return feature.SaveCSVFile(s.Path, feature.UserIDHeader, out)
}

var _ core.ProfileStore = (*CSVStore)(nil)
