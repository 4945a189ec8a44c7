package relay

import (
	"context"
	"sync"
)

// Cell — ячейка последнего запушенного состояния.
// Пуш перезаписывает значение целиком, частичных обновлений нет.
type Cell[T any] interface {
	// Load возвращает значение и признак, что в ячейку хоть раз писали.
	Load(ctx context.Context) (T, bool, error)
	Store(ctx context.Context, v T) error
}

// MemoryCell держит значение в памяти процесса.
// Каждый экземпляр Relay (и каждый тест) получает свои ячейки, глобалов нет.
type MemoryCell[T any] struct {
	mu    sync.RWMutex
	value T
	set   bool
}

func NewMemoryCell[T any]() *MemoryCell[T] {
	return &MemoryCell[T]{}
}

func (c *MemoryCell[T]) Load(_ context.Context) (T, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.set, nil
}

func (c *MemoryCell[T]) Store(_ context.Context, v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.set = true
	return nil
}
