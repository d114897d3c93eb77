// Package fstest provides an in-memory filesystem that records every call,
// for tests of code built on the filesystem capability.
package fstest

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/sqlitedrop/sqlitedrop/pkg/filesystem"
)

// Recorded operation names.
const (
	OpExists  = "exists"
	OpSize    = "size"
	OpAcquire = "acquire"
	OpTouch   = "touch"
	OpWrite   = "write"
	OpDelete  = "delete"
	OpClose   = "close"
)

// MemFS is an in-memory filesystem. Set a Fail* field to make the matching
// operation return that error.
type MemFS struct {
	mu    sync.Mutex
	files map[string][]byte
	ops   []string

	FailExists  error
	FailSize    error
	FailAcquire error
	FailTouch   error
	FailWrite   error
	FailDelete  error
}

var _ filesystem.Acquirer = (*MemFS)(nil)
var _ filesystem.Filesystem = (*MemFS)(nil)

// New returns an empty MemFS.
func New() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

// Put stores a file without recording an operation.
func (m *MemFS) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
}

// Get returns a file's content without recording an operation.
func (m *MemFS) Get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return data, ok
}

// Ops returns a copy of the recorded operations in call order.
func (m *MemFS) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

// Count returns how many times op was recorded.
func (m *MemFS) Count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.ops {
		if o == op {
			n++
		}
	}
	return n
}

// Mutations counts session acquisitions and mutating calls.
func (m *MemFS) Mutations() int {
	return m.Count(OpAcquire) + m.Count(OpTouch) + m.Count(OpWrite) + m.Count(OpDelete)
}

// ResetOps clears the operation log.
func (m *MemFS) ResetOps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

func (m *MemFS) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}

// Acquire returns a session over the same files.
func (m *MemFS) Acquire(_ context.Context) (filesystem.Session, error) {
	m.record(OpAcquire)
	if m.FailAcquire != nil {
		return nil, m.FailAcquire
	}
	return session{m}, nil
}

// Exists reports whether path holds a file.
func (m *MemFS) Exists(_ context.Context, path string) (bool, error) {
	m.record(OpExists)
	if m.FailExists != nil {
		return false, m.FailExists
	}
	_, ok := m.Get(path)
	return ok, nil
}

// Size returns the length of the file at path.
func (m *MemFS) Size(_ context.Context, path string) (int64, error) {
	m.record(OpSize)
	if m.FailSize != nil {
		return 0, m.FailSize
	}
	data, ok := m.Get(path)
	if !ok {
		return 0, fmt.Errorf("stat %s: %w", path, fs.ErrNotExist)
	}
	return int64(len(data)), nil
}

// Touch creates an empty file if none exists.
func (m *MemFS) Touch(_ context.Context, path string) error {
	m.record(OpTouch)
	if m.FailTouch != nil {
		return m.FailTouch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		m.files[path] = []byte{}
	}
	return nil
}

// Write replaces the content of path.
func (m *MemFS) Write(_ context.Context, path string, data []byte) error {
	m.record(OpWrite)
	if m.FailWrite != nil {
		return m.FailWrite
	}
	m.Put(path, data)
	return nil
}

// Delete removes path.
func (m *MemFS) Delete(_ context.Context, path string) error {
	m.record(OpDelete)
	if m.FailDelete != nil {
		return m.FailDelete
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("delete %s: %w", path, fs.ErrNotExist)
	}
	delete(m.files, path)
	return nil
}

type session struct {
	*MemFS
}

func (s session) Close() error {
	s.record(OpClose)
	return nil
}

// Prerequisite is a fixed engine prerequisite that counts its checks.
type Prerequisite struct {
	mu     sync.Mutex
	OK     bool
	checks int
}

// Available returns p.OK.
func (p *Prerequisite) Available(_ context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks++
	return p.OK
}

// Checks returns how many times Available was called.
func (p *Prerequisite) Checks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checks
}
