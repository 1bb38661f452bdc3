// Package persistence implements the "Persistence collaborator" of
// spec.md §6: save_streams/load_streams, called by the Stream Manager
// after every mutation and consumed at boot.
//
// Grounded on orion-prototipe/internal/worker/person_detector_python.go's
// length-prefixed msgpack IPC framing (a 4-byte big-endian length prefix
// followed by a msgpack.Marshal payload): the on-disk snapshot file
// reuses that exact framing for a single record — the full StreamConfig
// list — rewritten atomically on every mutation. This is deliberately a
// different format from the YAML boot config (internal/config): YAML is
// human-authored bootstrap, this is the machine-written runtime
// snapshot.
package persistence

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/care/orion/internal/types"
)

// FileStore persists StreamConfig snapshots to a single file.
type FileStore struct {
	path string
}

// NewFileStore builds a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// SaveStreams marshals configs to msgpack, writes a 4-byte big-endian
// length prefix, and atomically replaces the snapshot file via a
// temp-file rename.
func (f *FileStore) SaveStreams(configs []types.StreamConfig) error {
	payload, err := msgpack.Marshal(configs)
	if err != nil {
		return fmt.Errorf("persistence: marshal: %w", err)
	}

	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, uint32(len(payload)))

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".streams-*.tmp")
	if err != nil {
		return fmt.Errorf("persistence: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(prefix); err != nil {
		tmp.Close()
		return fmt.Errorf("persistence: write length prefix: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("persistence: write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persistence: close temp: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("persistence: rename: %w", err)
	}
	return nil
}

// LoadStreams reads the length-prefixed msgpack record back into a
// StreamConfig list. A missing file is not an error — it means no
// streams were ever persisted.
func (f *FileStore) LoadStreams() ([]types.StreamConfig, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: read: %w", err)
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("persistence: truncated snapshot file")
	}

	length := binary.BigEndian.Uint32(data[:4])
	if int(length) > len(data)-4 {
		return nil, fmt.Errorf("persistence: length prefix %d exceeds file size", length)
	}
	payload := data[4 : 4+length]

	var configs []types.StreamConfig
	if err := msgpack.Unmarshal(payload, &configs); err != nil {
		return nil, fmt.Errorf("persistence: unmarshal: %w", err)
	}
	return configs, nil
}
