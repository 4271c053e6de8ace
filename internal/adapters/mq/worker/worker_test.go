package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/cfduel/internal/adapters/mq/queue"
	"github.com/okian/cfduel/internal/adapters/mq/worker"
	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	m.Run()
}

type captureSink struct {
	mu        sync.Mutex
	delivered []worker.Event
	fail      bool
}

func (c *captureSink) Deliver(_ context.Context, a worker.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("sink down")
	}
	c.delivered = append(c.delivered, a)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.delivered)
}

func (c *captureSink) setFail(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = v
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func announcement(id string) worker.Event {
	return model.Announcement{Kind: model.AnnounceFinal, DuelID: id, Channel: "chan"}
}

func TestWorkerDelivers(t *testing.T) {
	Convey("Given a running worker over a queue", t, func() {
		q := queue.NewInMemoryQueue()
		sink := &captureSink{}
		w := worker.New(q, sink)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		Convey("When announcements are enqueued", func() {
			So(q.Enqueue(ctx, announcement("d1")), ShouldBeTrue)
			So(q.Enqueue(ctx, announcement("d2")), ShouldBeTrue)

			Convey("Then the sink receives them", func() {
				So(waitFor(func() bool { return sink.count() == 2 }), ShouldBeTrue)
			})
		})

		Convey("When the sink fails", func() {
			sink.setFail(true)
			So(q.Enqueue(ctx, announcement("d1")), ShouldBeTrue)

			Convey("Then the worker keeps running and later events flow", func() {
				time.Sleep(20 * time.Millisecond)
				sink.setFail(false)

				So(q.Enqueue(ctx, announcement("d2")), ShouldBeTrue)
				So(waitFor(func() bool { return sink.count() == 1 }), ShouldBeTrue)
				sink.mu.Lock()
				got := sink.delivered[0].DuelID
				sink.mu.Unlock()
				So(got, ShouldEqual, "d2")
			})
		})
	})
}

func TestPoolDrainsOnShutdown(t *testing.T) {
	Convey("Given a started pool with a backlog", t, func() {
		q := queue.NewInMemoryQueue()
		sink := &captureSink{}
		p := worker.NewPool(2, q, sink)

		ctx := context.Background()
		for i := 0; i < 5; i++ {
			So(q.Enqueue(ctx, announcement("d")), ShouldBeTrue)
		}
		p.Start(ctx)

		Convey("When the pool shuts down", func() {
			So(p.Shutdown(ctx), ShouldBeNil)

			Convey("Then the backlog was delivered and the queue closed", func() {
				So(sink.count(), ShouldEqual, 5)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})
}
