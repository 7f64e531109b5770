package nt

import (
	"strings"
	"sync"
)

// Table is a named group of NetworkTables entries.
type Table interface {
	// GetDouble returns the entry as a number, or def when it is absent or not numeric.
	GetDouble(key string, def float64) float64

	// SetNumber publishes a numeric entry.
	SetNumber(key string, v float64) error
}

// MemoryTable is an in-process Table for tests and simulation.
type MemoryTable struct {
	mu     sync.RWMutex
	values map[string]float64
}

// NewMemoryTable returns an empty table.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{values: make(map[string]float64)}
}

// GetDouble returns the stored value or def.
func (t *MemoryTable) GetDouble(key string, def float64) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.values[key]; ok {
		return v
	}
	return def
}

// SetNumber stores v.
func (t *MemoryTable) SetNumber(key string, v float64) error {
	t.mu.Lock()
	t.values[key] = v
	t.mu.Unlock()
	return nil
}

// remoteTable is a Table view over a Client.
type remoteTable struct {
	client *Client
	prefix string
}

func (t *remoteTable) GetDouble(key string, def float64) float64 {
	return t.client.GetDouble(t.prefix+key, def)
}

func (t *remoteTable) SetNumber(key string, v float64) error {
	return t.client.SetNumber(t.prefix+key, v)
}

// topicPrefix returns "/name/" for a table name.
func topicPrefix(name string) string {
	return "/" + strings.Trim(name, "/") + "/"
}

// Tables hands out tables by name. *Client and *MemoryTables implement it.
type Tables interface {
	Table(name string) Table
}

// MemoryTables is a set of MemoryTable keyed by name.
type MemoryTables struct {
	mu     sync.Mutex
	tables map[string]*MemoryTable
}

// NewMemoryTables returns an empty set.
func NewMemoryTables() *MemoryTables {
	return &MemoryTables{tables: make(map[string]*MemoryTable)}
}

// Table returns the named table, creating it on first use.
func (m *MemoryTables) Table(name string) Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	if !ok {
		t = NewMemoryTable()
		m.tables[name] = t
	}
	return t
}
