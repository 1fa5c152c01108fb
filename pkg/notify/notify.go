// Package notify publishes change events after successful writes through a
// rest endpoint.
//
// Subjects follow `prefix.resource.operation`, for example
//
//	fluentrest.accounts.create
//	fluentrest.addresses.delete
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Op is the kind of write that produced an event.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event describes a row written through a rest endpoint. ID is empty for
// bulk deletes; Row is nil for deletes.
type Event struct {
	Resource string         `json:"resource"`
	Op       Op             `json:"op"`
	ID       string         `json:"id,omitempty"`
	Row      map[string]any `json:"row,omitempty"`
	Filters  map[string]any `json:"filters,omitempty"`
}

// Notifier receives change events. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Nop discards every event.
var Nop Notifier = NotifierFunc(func(context.Context, Event) error { return nil })

// Multi fans an event out to every notifier and joins their errors.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, event Event) error {
		var errs []error
		for _, n := range notifiers {
			if err := n.Notify(ctx, event); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// LogNotifier writes events to a zap logger at debug level.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, event Event) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Debug("change",
		zap.String("resource", event.Resource),
		zap.String("op", string(event.Op)),
		zap.String("id", event.ID),
		zap.Any("filters", event.Filters),
	)
	return nil
}
