package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

type memoryObject struct {
	data    []byte
	modTime time.Time
}

// Memory is an in-process Backend, used by tests and by STORAGE_BACKEND=memory.
type Memory struct {
	mu      sync.RWMutex
	objects map[Kind]map[string]memoryObject
}

func NewMemory() *Memory {
	return &Memory{
		objects: map[Kind]map[string]memoryObject{
			KindUpload: {},
			KindImage:  {},
		},
	}
}

func (m *Memory) Put(ctx context.Context, kind Kind, name string, r io.Reader) (*Info, error) {
	if err := validate(kind, name); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	now := time.Now()
	m.mu.Lock()
	m.objects[kind][name] = memoryObject{data: data, modTime: now}
	m.mu.Unlock()

	return &Info{
		Name:     name,
		Kind:     kind,
		Location: "memory://" + string(kind) + "/" + name,
		Size:     int64(len(data)),
		ModTime:  now,
	}, nil
}

func (m *Memory) Open(ctx context.Context, kind Kind, name string) (*Object, error) {
	if err := validate(kind, name); err != nil {
		return nil, err
	}

	m.mu.RLock()
	obj, ok := m.objects[kind][name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
	}

	return &Object{
		Info: Info{
			Name:     name,
			Kind:     kind,
			Location: "memory://" + string(kind) + "/" + name,
			Size:     int64(len(obj.data)),
			ModTime:  obj.modTime,
		},
		ReadCloser: io.NopCloser(bytes.NewReader(obj.data)),
	}, nil
}

func (m *Memory) Exists(ctx context.Context, kind Kind, name string) (bool, error) {
	if err := validate(kind, name); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[kind][name]
	return ok, nil
}

func (m *Memory) List(ctx context.Context, kind Kind) ([]string, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	m.mu.RLock()
	names := make([]string, 0, len(m.objects[kind]))
	for name := range m.objects[kind] {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	return names, nil
}

func (m *Memory) Delete(ctx context.Context, kind Kind, name string) error {
	if err := validate(kind, name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[kind][name]; !ok {
		return fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
	}
	delete(m.objects[kind], name)
	return nil
}
