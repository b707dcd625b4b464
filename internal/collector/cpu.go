package collector

import "sync"

// CPUTimes накопленное время процессора в секундах
type CPUTimes struct {
	Busy  float64
	Total float64
}

// cpuTracker считает загрузку CPU по разнице с собственным прошлым показанием
type cpuTracker struct {
	mu   sync.Mutex
	prev *CPUTimes
}

// observe возвращает процент занятости с прошлого вызова и запоминает
// текущее показание. Первый вызов и интервал без прироста дают ErrNoData.
func (t *cpuTracker) observe(curr CPUTimes) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.prev
	t.prev = &curr

	if prev == nil {
		return 0, ErrNoData
	}

	total := curr.Total - prev.Total
	if total <= 0 {
		return 0, ErrNoData
	}
	busy := curr.Busy - prev.Busy
	if busy <= 0 {
		return 0, nil
	}
	if busy >= total {
		return 100, nil
	}
	return 100 * busy / total, nil
}
