package server

import (
	"context"
	"errors"
	"sync"

	"github.com/louisbranch/latchkey.house/internal/storage"
)

type fakeLocal struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{values: make(map[string][]byte)}
}

func (f *fakeLocal) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (f *fakeLocal) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeLocal) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func (f *fakeLocal) DeletePrefix(_ context.Context, _ string) error {
	return nil
}

type fakeRemote struct {
	mu   sync.Mutex
	docs map[string][]byte
	adds int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: make(map[string][]byte)}
}

func (f *fakeRemote) AddDocument(_ context.Context, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds++
	return "doc-1", nil
}

func (f *fakeRemote) GetDocument(_ context.Context, collection, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[collection+"/"+id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), doc...), nil
}

func (f *fakeRemote) SetDocument(_ context.Context, collection, id string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[collection+"/"+id] = append([]byte(nil), payload...)
	return nil
}

func (f *fakeRemote) IncrementField(_ context.Context, _, _, _ string, _ int64) error {
	return errors.New("not implemented")
}
