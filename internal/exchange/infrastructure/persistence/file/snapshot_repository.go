// Package file 基于本地文件的快照存储
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wyfcoding/spotexchange/internal/exchange/domain"
)

// SnapshotRepository 将快照以 JSON 写入单一文件。
// 写入先落临时文件再 rename，崩溃不会留下半截快照
type SnapshotRepository struct {
	path string
}

// NewSnapshotRepository 创建文件快照存储，并确保目录存在
func NewSnapshotRepository(path string) (*SnapshotRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotRepository{path: path}, nil
}

// Save 原子地写入快照
func (r *SnapshotRepository) Save(_ context.Context, snapshot *domain.EngineSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}

// Load 读取最近一次快照，文件不存在时 found 为 false
func (r *SnapshotRepository) Load(_ context.Context) (*domain.EngineSnapshot, bool, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read snapshot file: %w", err)
	}

	var snap domain.EngineSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot file: %w", err)
	}
	return &snap, true, nil
}
