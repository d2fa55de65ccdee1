package events

import (
	"context"
	"errors"
	"sync"
)

// LocalBus delivers in-process only.
type LocalBus struct {
	mu    sync.RWMutex
	onMsg func(Message)
}

func NewLocalBus() *LocalBus { return &LocalBus{} }

func (b *LocalBus) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	fn := b.onMsg
	b.mu.RUnlock()
	if fn != nil {
		fn(msg)
	}
	return nil
}

func (b *LocalBus) StartForwarder(_ context.Context, onMsg func(Message)) error {
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}
	b.mu.Lock()
	b.onMsg = onMsg
	b.mu.Unlock()
	return nil
}

func (b *LocalBus) Close() error { return nil }
