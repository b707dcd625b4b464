// Package cache хранит последний опубликованный срез метрик и отдает его
// конкурентным читателям без повторного опроса ОС.
package cache

import (
	"sync"
	"time"

	"hostmon/internal/collector"
)

// Metadata производные сведения о срезе, вычисляемые при чтении
type Metadata struct {
	AgeSeconds     float64       `json:"age_seconds"`
	TotalSnapshots uint64        `json:"total_snapshots"`
	UpdateInterval time.Duration `json:"-"`
	UpdateSeconds  float64       `json:"update_interval"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

// Entry срез вместе с метаданными
type Entry struct {
	Snapshot collector.Snapshot `json:"snapshot"`
	Metadata Metadata           `json:"metadata"`
}

// entry неизменяемая запись, заменяемая целиком при публикации
type entry struct {
	snapshot collector.Snapshot
	total    uint64
}

// SnapshotCache держит последний срез. Писатель один, читателей сколько угодно.
type SnapshotCache struct {
	mu             sync.RWMutex
	current        *entry
	updateInterval time.Duration
	now            func() time.Time
}

// Option настраивает кэш
type Option func(*SnapshotCache)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(c *SnapshotCache) {
		c.now = now
	}
}

// New создает пустой кэш
func New(updateInterval time.Duration, opts ...Option) *SnapshotCache {
	c := &SnapshotCache{
		updateInterval: updateInterval,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish заменяет срез, проставляя время генерации и порядковый номер.
// Возвращает проставленный срез.
func (c *SnapshotCache) Publish(s collector.Snapshot) collector.Snapshot {
	s = s.Clone()
	s.GeneratedAt = c.now()

	c.mu.Lock()
	var total uint64 = 1
	if c.current != nil {
		total = c.current.total + 1
	}
	s.Sequence = total
	c.current = &entry{snapshot: s, total: total}
	c.mu.Unlock()

	return s.Clone()
}

// Read возвращает независимую копию среза и метаданные.
// До первой публикации возвращает false.
func (c *SnapshotCache) Read() (Entry, bool) {
	c.mu.RLock()
	e := c.current
	c.mu.RUnlock()

	if e == nil {
		return Entry{}, false
	}

	age := c.now().Sub(e.snapshot.GeneratedAt)
	if age < 0 {
		age = 0
	}

	return Entry{
		Snapshot: e.snapshot.Clone(),
		Metadata: Metadata{
			AgeSeconds:     age.Seconds(),
			TotalSnapshots: e.total,
			UpdateInterval: c.updateInterval,
			UpdateSeconds:  c.updateInterval.Seconds(),
			GeneratedAt:    e.snapshot.GeneratedAt,
		},
	}, true
}

// Sequence возвращает номер последнего среза, 0 до первой публикации
func (c *SnapshotCache) Sequence() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return 0
	}
	return c.current.total
}

// UpdateInterval возвращает период публикации
func (c *SnapshotCache) UpdateInterval() time.Duration {
	return c.updateInterval
}
