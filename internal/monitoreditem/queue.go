package monitoreditem

import (
	"github.com/gammazero/deque"

	"github.com/amine-amaach/opcua-monitoreditems/internal/ua"
)

// notificationQueue is the bounded FIFO of spec.md §4.4: capacity
// queue_size, discard-oldest or discard-newest overflow policy, with an
// overflow marker applied to the boundary reading. Backed by
// gammazero/deque the same way the teacher's DataChangeMonitoredItem
// backs its queue and prequeue.
type notificationQueue struct {
	items         deque.Deque[ua.DataValue]
	capacity      uint32
	discardOldest bool
	overflow      bool
}

func newNotificationQueue(capacity uint32, discardOldest bool) *notificationQueue {
	return &notificationQueue{capacity: capacity, discardOldest: discardOldest}
}

// Len returns the number of readings currently queued.
func (q *notificationQueue) Len() int {
	return q.items.Len()
}

// Overflow reports whether the queue currently holds a reading carrying
// the overflow marker.
func (q *notificationQueue) Overflow() bool {
	return q.overflow
}

// Push enqueues item under the configured overflow policy (spec.md §4.4).
func (q *notificationQueue) Push(item ua.DataValue) {
	if q.capacity == 1 {
		if q.items.Len() == 1 {
			q.items.PopFront()
		}
		q.items.PushBack(item)
		return
	}
	if q.discardOldest {
		if q.items.Len() >= int(q.capacity) {
			q.items.PopFront()
			q.items.PushBack(item)
			if q.items.Len() > 0 {
				front := q.items.Front()
				front.StatusCode = front.StatusCode.WithOverflow()
				q.items.Set(0, front)
			}
			q.overflow = true
			return
		}
		q.items.PushBack(item)
		return
	}
	// discard-newest: once full, the new reading replaces the back entry
	// and itself carries the overflow marker.
	if q.items.Len() >= int(q.capacity) {
		item.StatusCode = item.StatusCode.WithOverflow()
		q.items.Set(q.items.Len()-1, item)
		q.overflow = true
		return
	}
	q.items.PushBack(item)
}

// DrainAll empties the queue and clears the overflow flag, returning the
// readings in FIFO order (spec.md §4.1 extract_notifications, §4.4).
func (q *notificationQueue) DrainAll() []ua.DataValue {
	out := make([]ua.DataValue, 0, q.items.Len())
	for q.items.Len() > 0 {
		out = append(out, q.items.PopFront())
	}
	q.overflow = false
	return out
}

// Clear empties the queue without returning its contents, used when
// transitioning to Disabled (spec.md §4.1).
func (q *notificationQueue) Clear() {
	q.items.Clear()
	q.overflow = false
}

// Peek returns the most recently pushed reading, if any.
func (q *notificationQueue) Peek() (ua.DataValue, bool) {
	if q.items.Len() == 0 {
		return ua.DataValue{}, false
	}
	return q.items.Back(), true
}

// Resize applies the queue-resize rules of spec.md §4.4 when modify()
// changes queue_size: drop from the front under discard-oldest, or
// truncate from the back while preserving the most recent entry under
// discard-newest. A resize to 1 clears the overflow flag and downgrades a
// lingering GoodWithOverflowBit on the single survivor.
func (q *notificationQueue) Resize(newCapacity uint32, discardOldest bool) {
	q.capacity = newCapacity
	q.discardOldest = discardOldest
	if discardOldest {
		for q.items.Len() > int(newCapacity) {
			q.items.PopFront()
		}
	} else {
		for q.items.Len() > int(newCapacity) {
			// truncate from the back but keep the last element as the
			// last surviving element: pop the second-to-last instead of
			// the true back when more than one remains above capacity.
			if q.items.Len() > 1 {
				last := q.items.PopBack()
				q.items.PopBack()
				q.items.PushBack(last)
			} else {
				q.items.PopBack()
			}
		}
	}
	if newCapacity == 1 {
		q.overflow = false
		if q.items.Len() == 1 {
			v := q.items.Front()
			if v.StatusCode.IsOverflow() {
				v.StatusCode = v.StatusCode.WithoutOverflow()
				q.items.Set(0, v)
			}
		}
		return
	}
	q.overflow = q.anyOverflowMarked()
}

// anyOverflowMarked reports whether any queued reading still carries the
// overflow marker, used to keep the overflow flag consistent with
// invariant 2 after a resize drops the reading that originally carried it.
func (q *notificationQueue) anyOverflowMarked() bool {
	for i := 0; i < q.items.Len(); i++ {
		if q.items.At(i).StatusCode.IsOverflow() {
			return true
		}
	}
	return false
}
