package deployments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FileStore keeps records in the hardhat-deploy layout:
// <root>/<network>/<Name>.json plus a <root>/<network>/.chainId marker.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) Root() string { return s.root }

func (s *FileStore) Save(_ context.Context, rec *Record) error {
	if rec.Network == "" || rec.Name == "" {
		return errors.New("save deployment: network and name are required")
	}
	if prev, err := s.read(rec.Network, rec.Name); err == nil {
		rec.ID = prev.ID
	}
	prepare(rec)

	dir := filepath.Join(s.root, rec.Network)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create deployments dir: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, ".chainId"), []byte(strconv.FormatUint(rec.ChainID, 10))); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal deployment %s: %w", rec.Name, err)
	}
	return writeFileAtomic(filepath.Join(dir, rec.Name+".json"), data)
}

func (s *FileStore) Get(_ context.Context, network, name string) (*Record, error) {
	return s.read(network, name)
}

func (s *FileStore) List(_ context.Context, network string) ([]*Record, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, network))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}

	var out []*Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := s.read(network, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, network string) error {
	if network == "" {
		return errors.New("delete deployments: network is required")
	}
	if err := os.RemoveAll(filepath.Join(s.root, network)); err != nil {
		return fmt.Errorf("delete deployments: %w", err)
	}
	return nil
}

// ChainID returns the chain id recorded for a network directory.
func (s *FileStore) ChainID(network string) (uint64, error) {
	data, err := os.ReadFile(filepath.Join(s.root, network, ".chainId"))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: no deployments on %s", ErrNotFound, network)
	}
	if err != nil {
		return 0, fmt.Errorf("read chain id: %w", err)
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}

func (s *FileStore) read(network, name string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.root, network, name+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotFound, name, network)
	}
	if err != nil {
		return nil, fmt.Errorf("read deployment %s: %w", name, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse deployment %s: %w", name, err)
	}
	if rec.Name == "" {
		rec.Name = name
	}
	if rec.Network == "" {
		rec.Network = network
	}
	return &rec, nil
}

// writeFileAtomic writes data to a temp file in the same directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
