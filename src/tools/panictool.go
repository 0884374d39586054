package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/ARahim900/muscatbay-sub004/config/log"

	"go.uber.org/zap"
)

// Panic is a recovered goroutine panic. It satisfies error so Wait can hand
// it back to the caller.
type Panic struct {
	R     interface{}
	Stack []byte
}

func (p Panic) Error() string {
	return fmt.Sprintf("panic: %v", p.R)
}

func (p Panic) String() string {
	return fmt.Sprintf("%v\n%s", p.R, p.Stack)
}

type PanicGroup struct {
	panics chan Panic
	dones  chan struct{}
	jobN   int32
}

func NewPanicGroup() *PanicGroup {
	return &PanicGroup{
		panics: make(chan Panic, 8),
		dones:  make(chan struct{}, 8),
	}
}

// Go runs f in its own goroutine and logs any panic with its stack.
func (g *PanicGroup) Go(f func()) *PanicGroup {
	atomic.AddInt32(&g.jobN, 1)
	go func() {
		defer func() {
			r := recover()
			if r == nil {
				g.dones <- struct{}{}
				return
			}
			p := Panic{R: r, Stack: debug.Stack()}
			log.Logger.Error("Recovered panic in goroutine", zap.Any("panic", r), zap.ByteString("stack", p.Stack))
			select {
			case g.panics <- p:
			default:
				g.dones <- struct{}{}
			}
		}()
		f()
	}()
	return g
}

// Wait returns nil once every goroutine finished, the first recovered Panic,
// or the context error.
func (g *PanicGroup) Wait(ctx context.Context) error {
	if atomic.LoadInt32(&g.jobN) == 0 {
		return nil
	}
	for {
		select {
		case <-g.dones:
			if atomic.AddInt32(&g.jobN, -1) == 0 {
				return nil
			}
		case p := <-g.panics:
			return p
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
