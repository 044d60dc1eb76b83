package eventbus

import (
	"context"

	"orderhub/internal/events"
)

// Handler обрабатывает одно событие. ctx отменяется по HandlerTimeout или при закрытии шины.
type Handler func(ctx context.Context, ev events.Event) error

// HandlerID идентифицирует регистрацию; функции в Go несравнимы, поэтому Off работает по id.
type HandlerID uint64

type registration struct {
	id       HandlerID
	name     string
	handler  Handler
	priority events.Priority
	async    bool
}

type HandlerOption func(*registration)

// WithPriority задаёт порядок вызова внутри одного события (Critical первым).
func WithPriority(p events.Priority) HandlerOption {
	return func(r *registration) { r.priority = p }
}

// Sync — шина дожидается завершения обработчика перед вызовом следующего.
func Sync() HandlerOption {
	return func(r *registration) { r.async = false }
}

// Named задаёт имя обработчика для логов и Failure.
func Named(name string) HandlerOption {
	return func(r *registration) { r.name = name }
}

// insertSorted сохраняет порядок регистрации для одинаковых приоритетов.
func insertSorted(list []registration, r registration) []registration {
	idx := len(list)
	for i, cur := range list {
		if cur.priority < r.priority {
			idx = i
			break
		}
	}
	list = append(list, registration{})
	copy(list[idx+1:], list[idx:])
	list[idx] = r
	return list
}
