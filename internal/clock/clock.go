package clock

import (
	"sync"
	"time"
)

// Clock представляет гибридные логические часы: unix-миллисекунды,
// сдвигаемые вперёд при наблюдении чужих меток. Метки строго монотонны
// в пределах экземпляра и остаются сравнимыми между клиентом и сервером
// без доверия к точности физических часов.
type Clock struct {
	now  func() time.Time // источник физического времени, подменяется в тестах
	last int64            // последняя выданная или наблюдавшаяся метка
	mu   sync.Mutex       // мьютекс для потокобезопасности
}

// New создает часы, отсчитывающие от системного времени
func New() *Clock {
	return &Clock{now: time.Now}
}

// NewWithNow создает часы с заданным источником времени.
// Используется в тестах для детерминированных меток.
func NewWithNow(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Tick возвращает новую метку для локального события:
// max(физическое время в мс, last) + 1 при совпадении, иначе физическое время.
func (c *Clock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// Observe сдвигает часы вперёд по наблюдаемой удаленной метке.
// Вызывается при приёме данных от сервера, чтобы локальные метки
// никогда не отставали от уже увиденных.
func (c *Clock) Observe(remote int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote > c.last {
		c.last = remote
	}
}

// Last возвращает последнюю выданную метку без её изменения
func (c *Clock) Last() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}

// Restore устанавливает часы в заданное значение.
// Используется для восстановления состояния после перезапуска.
func (c *Clock) Restore(last int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last = last
}
