package history

import (
	"context"
	"sort"
	"sync"
)

// MockRepository はテスト用のメモリ上のリポジトリ
type MockRepository struct {
	mu       sync.Mutex
	sessions map[string]SessionRecord
	closed   bool
}

// NewMockRepository は新しい MockRepository を作成する
func NewMockRepository(records ...SessionRecord) *MockRepository {
	m := &MockRepository{sessions: make(map[string]SessionRecord)}
	for _, r := range records {
		m.sessions[r.ID] = r
	}
	return m
}

func (m *MockRepository) SaveSession(_ context.Context, record *SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[record.ID] = *record
	return nil
}

func (m *MockRepository) ListSessions(_ context.Context, limit int) ([]SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]SessionRecord, 0, len(m.sessions))
	for _, r := range m.sessions {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].EndedAt.After(records[j].EndedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *MockRepository) GetSession(_ context.Context, id string) (*SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &r, nil
}

func (m *MockRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed は Close が呼ばれたかを返す
func (m *MockRepository) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
