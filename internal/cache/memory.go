package cache

import (
	"context"
	"sync"

	"github.com/zarvd/token-signer/internal/clock"
)

var _ Cache = (*Memory)(nil)

type Memory struct {
	clock clock.Clock
	items sync.Map
}

func NewMemory(c clock.Clock) *Memory {
	return &Memory{clock: c}
}

func (m *Memory) Get(ctx context.Context, token string) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}

	value, ok := m.items.Load(token)
	if !ok {
		return Entry{}, false, nil
	}
	entry := value.(Entry)
	if entry.Expired(m.clock.Now()) {
		// only evict the entry we read; a concurrent Set may have replaced it
		m.items.CompareAndDelete(token, value)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (m *Memory) Set(ctx context.Context, token string, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.items.LoadOrStore(token, entry)
	return nil
}
