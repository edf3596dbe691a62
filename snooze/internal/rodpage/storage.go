package rodpage

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
)

// LocalStorage is a store.KV over the tab's window.localStorage, the
// store a browser-side snooze install shares. It only works while the tab is on the
// dashboard origin.
type LocalStorage struct {
	page *rod.Page
}

// NewLocalStorage binds to p's origin.
func NewLocalStorage(p *rod.Page) *LocalStorage {
	return &LocalStorage{page: p}
}

func (s *LocalStorage) Get(ctx context.Context, key string) (string, bool, error) {
	res, err := s.page.Context(ctx).Eval(`function(k) { return localStorage.getItem(k); }`, key)
	if err != nil {
		return "", false, fmt.Errorf("rodpage: localStorage get %s: %w", key, err)
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

func (s *LocalStorage) Set(ctx context.Context, key, value string) error {
	if _, err := s.page.Context(ctx).Eval(`function(k, v) { localStorage.setItem(k, v); }`, key, value); err != nil {
		return fmt.Errorf("rodpage: localStorage set %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) Remove(ctx context.Context, key string) error {
	if _, err := s.page.Context(ctx).Eval(`function(k) { localStorage.removeItem(k); }`, key); err != nil {
		return fmt.Errorf("rodpage: localStorage remove %s: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) All(ctx context.Context) (map[string]string, error) {
	res, err := s.page.Context(ctx).Eval(`function() {
		const o = {};
		for (let i = 0; i < localStorage.length; i++) {
			const k = localStorage.key(i);
			o[k] = localStorage.getItem(k);
		}
		return o;
	}`)
	if err != nil {
		return nil, fmt.Errorf("rodpage: localStorage all: %w", err)
	}
	out := make(map[string]string)
	if err := res.Value.Unmarshal(&out); err != nil {
		return nil, fmt.Errorf("rodpage: localStorage all: %w", err)
	}
	return out, nil
}

// SetMany writes every entry in one script turn.
func (s *LocalStorage) SetMany(ctx context.Context, entries map[string]string) error {
	if _, err := s.page.Context(ctx).Eval(`function(o) {
		for (const k in o) localStorage.setItem(k, o[k]);
	}`, entries); err != nil {
		return fmt.Errorf("rodpage: localStorage set many: %w", err)
	}
	return nil
}
