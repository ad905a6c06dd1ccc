package snapshotter

import (
	"context"
	"time"
)

type Event interface {
	Timestamp() time.Time
}

type event struct{ timestamp time.Time }

func (e event) Timestamp() time.Time { return e.timestamp }

type checkWakeupEvent struct {
	event
}

// alarmClock emits a wakeup immediately on start and then once per interval.
type alarmClock struct {
	interval time.Duration
	cancel   func()
	done     chan struct{}
	C        chan Event
}

func NewAlarmClock(interval time.Duration) *alarmClock {
	return &alarmClock{
		interval: interval,
		done:     make(chan struct{}),
		C:        make(chan Event),
	}
}

func (a *alarmClock) Start(ctx context.Context) <-chan Event {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		defer close(a.done)
		defer close(a.C)

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		next := checkWakeupEvent{event{time.Now().UTC()}}
		for {
			select {
			case a.C <- next:
			case <-ctx.Done():
				return
			}

			select {
			case t := <-ticker.C:
				next = checkWakeupEvent{event{t.UTC()}}
			case <-ctx.Done():
				return
			}
		}
	}()

	return a.C
}

func (a *alarmClock) Stop() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
}
