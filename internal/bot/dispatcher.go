package bot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultHandleTimeout = 30 * time.Second

// MessageHandler processes one message.
type MessageHandler interface {
	Handle(ctx context.Context, msg Message) error
}

// Dispatcher runs messages from different chats concurrently, at most
// maxConcurrency chats at a time. Messages of one chat are handled one at a
// time, in arrival order.
type Dispatcher struct {
	ctx           context.Context
	handler       MessageHandler
	handleTimeout time.Duration
	group         errgroup.Group

	mutex  sync.Mutex
	queues map[int64][]Message
}

func NewDispatcher(ctx context.Context, handler MessageHandler, maxConcurrency int, handleTimeout time.Duration) *Dispatcher {
	if handleTimeout <= 0 {
		handleTimeout = DefaultHandleTimeout
	}
	d := &Dispatcher{
		ctx:           ctx,
		handler:       handler,
		handleTimeout: handleTimeout,
		queues:        make(map[int64][]Message),
	}
	if maxConcurrency > 0 {
		d.group.SetLimit(maxConcurrency)
	}
	return d
}

// Dispatch queues msg. It blocks while all workers are busy with other chats.
func (d *Dispatcher) Dispatch(msg Message) {
	d.mutex.Lock()
	if pending, busy := d.queues[msg.ChatId]; busy {
		d.queues[msg.ChatId] = append(pending, msg)
		d.mutex.Unlock()
		return
	}
	d.queues[msg.ChatId] = []Message{msg}
	d.mutex.Unlock()

	d.group.Go(func() error {
		d.drain(msg.ChatId)
		return nil
	})
}

// Wait blocks until every queued message has been handled.
func (d *Dispatcher) Wait() error {
	return d.group.Wait()
}

func (d *Dispatcher) drain(chatId int64) {
	for {
		d.mutex.Lock()
		pending := d.queues[chatId]
		if len(pending) == 0 {
			delete(d.queues, chatId)
			d.mutex.Unlock()
			return
		}
		msg := pending[0]
		d.queues[chatId] = pending[1:]
		d.mutex.Unlock()

		d.handle(msg)
	}
}

func (d *Dispatcher) handle(msg Message) {
	ctx, cancel := context.WithTimeout(d.ctx, d.handleTimeout)
	defer cancel()

	if err := d.handler.Handle(ctx, msg); err != nil {
		zap.L().Error("Failed to handle message",
			zap.Int64("chat_id", msg.ChatId),
			zap.Int64("user_id", msg.UserId),
			zap.Error(err))
	}
}
