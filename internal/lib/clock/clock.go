// Package clock задаёт источник текущего времени. Все временные окна
// (возврат при отмене, период ожидания неявки) считаются относительно Clock,
// чтобы в тестах время можно было подменить.
package clock

import (
	"sync"
	"time"
)

// Clock возвращает текущий момент времени.
type Clock interface {
	Now() time.Time
}

// Real использует системные часы.
type Real struct{}

// Now возвращает time.Now().
func (Real) Now() time.Time { return time.Now() }

// Manual часы с ручным управлением для тестов. Безопасны для конкурентного использования.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManual создаёт часы, остановленные на моменте t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now возвращает установленный момент.
func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set переводит часы на момент t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance сдвигает часы вперёд на d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
