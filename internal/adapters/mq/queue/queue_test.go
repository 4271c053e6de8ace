package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/cfduel/internal/adapters/mq/queue"
	"github.com/okian/cfduel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func announcement(id string) queue.Event {
	return model.Announcement{
		Kind:    model.AnnounceStarted,
		DuelID:  id,
		Channel: "chan",
		Handles: [2]string{"alice", "bob"},
	}
}

func TestEnqueueDequeue(t *testing.T) {
	Convey("Given an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		ctx := context.Background()

		Convey("When announcements are enqueued", func() {
			So(q.Enqueue(ctx, announcement("d1")), ShouldBeTrue)
			So(q.Enqueue(ctx, announcement("d2")), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			Convey("Then they come out in order", func() {
				events := q.Dequeue(ctx)
				first := <-events
				second := <-events
				So(first.DuelID, ShouldEqual, "d1")
				So(second.DuelID, ShouldEqual, "d2")
			})
		})
	})
}

func TestFullQueueDrops(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))
		ctx := context.Background()

		Convey("When a third announcement arrives", func() {
			So(q.Enqueue(ctx, announcement("d1")), ShouldBeTrue)
			So(q.Enqueue(ctx, announcement("d2")), ShouldBeTrue)
			dropped := q.Enqueue(ctx, announcement("d3"))

			Convey("Then it is dropped without blocking", func() {
				So(dropped, ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})
	})
}

func TestClose(t *testing.T) {
	Convey("Given a queue with one pending announcement", t, func() {
		q := queue.NewInMemoryQueue()
		ctx := context.Background()
		So(q.Enqueue(ctx, announcement("d1")), ShouldBeTrue)

		Convey("When the queue is closed", func() {
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues are refused but the backlog drains", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, announcement("d2")), ShouldBeFalse)

				events := q.Dequeue(ctx)
				got := <-events
				So(got.DuelID, ShouldEqual, "d1")

				select {
				case _, ok := <-events:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					t.Fatal("dequeue channel did not close")
				}
			})

			Convey("Then a second close is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
