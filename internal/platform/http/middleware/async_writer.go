package middleware

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultQueueSize はAsyncWriterのキューの既定の長さです。
	DefaultQueueSize = 256
	writeTimeout     = 2 * time.Second
)

var (
	// ErrQueueFull はキューが満杯でログを破棄したことを示します。
	ErrQueueFull = errors.New("request log queue is full")
	// ErrWriterClosed はClose後に書き込まれたことを示します。
	ErrWriterClosed = errors.New("request log writer is closed")
)

// AsyncWriter は固定長のキューと1つのワーカーでinnerへ順に書き込みます。
// キューが満杯の場合はブロックせずに破棄します。
type AsyncWriter struct {
	inner RequestLogWriter
	queue chan RequestLog
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ RequestLogWriter = (*AsyncWriter)(nil)

// NewAsyncWriter はワーカーを起動します。sizeが1未満の場合はDefaultQueueSizeを使います。
// 終了時は必ずCloseを呼び、キューに残ったログを書き切ってください。
func NewAsyncWriter(inner RequestLogWriter, size int) *AsyncWriter {
	if size < 1 {
		size = DefaultQueueSize
	}
	w := &AsyncWriter{
		inner: inner,
		queue: make(chan RequestLog, size),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// WriteRequestLog はログをキューに積みます。ctxは使いません。
func (w *AsyncWriter) WriteRequestLog(_ context.Context, l RequestLog) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.queue <- l:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close は受け付けを止め、キューに残ったログを書き終えるまで待ちます。
func (w *AsyncWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *AsyncWriter) run() {
	defer close(w.done)
	for l := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.inner.WriteRequestLog(ctx, l); err != nil {
			slog.Warn("failed to persist request log", "path", l.Path, "error", err)
		}
		cancel()
	}
}
