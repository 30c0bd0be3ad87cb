package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"merchantpay/internal/model"
)

// DefaultCapacity is the number of orders the memory store keeps before
// dropping the oldest.
const DefaultCapacity = 1000

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	capacity int
	rows     []model.Order  // insertion order, oldest first
	index    map[string]int // id -> position in rows
	Now      func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithCapacity(DefaultCapacity)
}

func NewMemoryWithCapacity(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		capacity: capacity,
		rows:     []model.Order{},
		index:    map[string]int{},
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Insert(ctx context.Context, o model.Order) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) >= m.capacity {
		m.dropOldestLocked()
	}
	now := m.Now()
	o.ID = uuid.New().String()
	if o.Status == "" {
		o.Status = model.StatusPending
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	m.rows = append(m.rows, o)
	m.index[o.ID] = len(m.rows) - 1
	return o, nil
}

func (m *Memory) FindOne(ctx context.Context, id string) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.index[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return m.rows[i], nil
}

// FindAll returns a newest-first copy; the backing slice is never reordered.
func (m *Memory) FindAll(ctx context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Order, 0, len(m.rows))
	for i := len(m.rows) - 1; i >= 0; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, o model.Order, from model.Status) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.index[o.ID]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	cur := m.rows[i]
	if cur.Status != from {
		return cur, ErrStatusConflict
	}
	cur.Status = o.Status
	cur.UpdatedAt = m.Now()
	m.rows[i] = cur
	return cur, nil
}

func (m *Memory) SetPayLink(ctx context.Context, id, payLink string) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.index[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	cur := m.rows[i]
	cur.PayLink = payLink
	cur.UpdatedAt = m.Now()
	m.rows[i] = cur
	return cur, nil
}

// Len reports the number of stored orders.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *Memory) dropOldestLocked() {
	if len(m.rows) == 0 {
		return
	}
	delete(m.index, m.rows[0].ID)
	m.rows = append(m.rows[:0:0], m.rows[1:]...)
	for i, o := range m.rows {
		m.index[o.ID] = i
	}
}
