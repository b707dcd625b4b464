package window

import "sync"

// DefaultSize размер окна по умолчанию
const DefaultSize = 5

// ring кольцевой буфер последних значений одной метрики
type ring struct {
	values []float64
	next   int
	count  int
}

func (r *ring) push(v float64) {
	r.values[r.next] = v
	r.next = (r.next + 1) % len(r.values)
	if r.count < len(r.values) {
		r.count++
	}
}

func (r *ring) mean() float64 {
	var sum float64
	for i := 0; i < r.count; i++ {
		sum += r.values[i]
	}
	return sum / float64(r.count)
}

// Averager хранит скользящие окна последних значений по каждой метрике
type Averager struct {
	mu      sync.Mutex
	size    int
	windows map[string]*ring
}

// New создает усреднитель с окном заданного размера
func New(size int) *Averager {
	if size < 1 {
		size = DefaultSize
	}
	return &Averager{
		size:    size,
		windows: make(map[string]*ring),
	}
}

// Size возвращает емкость окна
func (a *Averager) Size() int {
	return a.size
}

// Add добавляет значение в окно метрики, вытесняя самое старое
func (a *Averager) Add(metric string, value float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, ok := a.windows[metric]
	if !ok {
		w = &ring{values: make([]float64, a.size)}
		a.windows[metric] = w
	}
	w.push(value)
}

// Averages возвращает среднее по текущему содержимому каждого окна.
// До первого Add возвращает false.
func (a *Averager) Averages() (map[string]float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.windows) == 0 {
		return nil, false
	}

	result := make(map[string]float64, len(a.windows))
	for name, w := range a.windows {
		result[name] = w.mean()
	}
	return result, true
}

// Len возвращает количество значений в окне метрики
func (a *Averager) Len(metric string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if w, ok := a.windows[metric]; ok {
		return w.count
	}
	return 0
}
