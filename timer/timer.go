// timer/timer.go
package timer

import (
	"container/heap"
	"time"
)

// Task is a callback scheduled on a Queue.
type Task struct {
	ID       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].Execute.Before(h[j].Execute)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	task := x.(*Task)
	task.index = len(*h)
	*h = append(*h, task)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*h = old[:n-1]
	return task
}

// Queue is a timer heap driven by its owner: callbacks run inside RunDue on
// the caller's goroutine, so they may touch loop-owned state freely. It is
// not safe for concurrent use.
type Queue struct {
	tasks  taskHeap
	byID   map[int64]*Task
	nextID int64
	now    func() time.Time
}

func NewQueue() *Queue {
	return &Queue{
		byID:   make(map[int64]*Task),
		nextID: 1,
		now:    time.Now,
	}
}

// AddTimer schedules callback after delay, then every interval if interval > 0.
func (q *Queue) AddTimer(delay, interval time.Duration, callback func()) int64 {
	task := &Task{
		ID:       q.nextID,
		Execute:  q.now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	q.nextID++
	heap.Push(&q.tasks, task)
	q.byID[task.ID] = task
	return task.ID
}

func (q *Queue) RemoveTimer(id int64) {
	task, ok := q.byID[id]
	if !ok {
		return
	}
	delete(q.byID, id)
	if task.index >= 0 {
		heap.Remove(&q.tasks, task.index)
	}
}

// Next returns when the earliest task is due.
func (q *Queue) Next() (time.Time, bool) {
	if len(q.tasks) == 0 {
		return time.Time{}, false
	}
	return q.tasks[0].Execute, true
}

// Until returns how long until the next task is due, capped at max.
func (q *Queue) Until(max time.Duration) time.Duration {
	next, ok := q.Next()
	if !ok {
		return max
	}
	d := next.Sub(q.now())
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}

// RunDue runs every task due at or before now and returns how many ran.
func (q *Queue) RunDue(now time.Time) int {
	ran := 0
	for len(q.tasks) > 0 {
		task := q.tasks[0]
		if task.Execute.After(now) {
			break
		}
		heap.Pop(&q.tasks)
		if task.Interval > 0 {
			task.Execute = now.Add(task.Interval)
			heap.Push(&q.tasks, task)
		} else {
			delete(q.byID, task.ID)
		}
		task.Callback()
		ran++
	}
	return ran
}

func (q *Queue) Len() int {
	return len(q.tasks)
}
