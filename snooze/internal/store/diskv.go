package store

import (
	"context"
	"fmt"

	"github.com/peterbourgon/diskv/v3"
)

// Diskv keeps one file per key under a base directory. Keys are flat: item
// identifiers and the override key are valid file names.
type Diskv struct {
	d *diskv.Diskv
}

// NewDiskv opens (or creates) a diskv store rooted at basePath.
func NewDiskv(basePath string) *Diskv {
	return &Diskv{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 64 * 1024,
	})}
}

func (s *Diskv) Get(_ context.Context, key string) (string, bool, error) {
	if !s.d.Has(key) {
		return "", false, nil
	}
	val, err := s.d.Read(key)
	if err != nil {
		return "", false, fmt.Errorf("store: diskv read %s: %w", key, err)
	}
	return string(val), true, nil
}

func (s *Diskv) Set(_ context.Context, key, value string) error {
	if err := s.d.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("store: diskv write %s: %w", key, err)
	}
	return nil
}

func (s *Diskv) Remove(_ context.Context, key string) error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("store: diskv erase %s: %w", key, err)
	}
	return nil
}

func (s *Diskv) All(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	for key := range s.d.Keys(ctx.Done()) {
		v, ok, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = v
		}
	}
	return out, ctx.Err()
}
