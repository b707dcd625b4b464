// Package netrate переводит накопительные счетчики байт сетевых интерфейсов
// в мгновенную пропускную способность.
package netrate

import (
	"sync"
	"time"
)

// Reading одно показание счетчиков
type Reading struct {
	BytesSent uint64
	BytesRecv uint64
	At        time.Time
}

// Rates пропускная способность в байтах в секунду
type Rates struct {
	SentPerSec float64 `json:"sent_per_sec"`
	RecvPerSec float64 `json:"recv_per_sec"`
}

// Tracker хранит предыдущее показание и считает скорость по разнице
type Tracker struct {
	mu   sync.Mutex
	prev *Reading
}

// New создает трекер без базового показания
func New() *Tracker {
	return &Tracker{}
}

// Observe возвращает скорость относительно предыдущего показания и
// запоминает текущее как новую базу.
// Первый вызов, неположительный интервал и сброс счетчика дают ноль.
func (t *Tracker) Observe(sent, recv uint64, now time.Time) Rates {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := Reading{BytesSent: sent, BytesRecv: recv, At: now}
	prev := t.prev
	t.prev = &current

	if prev == nil {
		return Rates{}
	}

	elapsed := now.Sub(prev.At).Seconds()
	if elapsed <= 0 {
		return Rates{}
	}

	return Rates{
		SentPerSec: rate(prev.BytesSent, sent, elapsed),
		RecvPerSec: rate(prev.BytesRecv, recv, elapsed),
	}
}

// baseline возвращает текущее базовое показание
func (t *Tracker) baseline() (Reading, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.prev == nil {
		return Reading{}, false
	}
	return *t.prev, true
}

// rate считает скорость, отсекая откат счетчика
func rate(prev, curr uint64, elapsed float64) float64 {
	if curr < prev {
		return 0
	}
	return float64(curr-prev) / elapsed
}
