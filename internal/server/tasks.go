package server

import (
	"sync"
	"time"
)

const (
	taskPhase      = "phase"
	taskTransition = "transition"
	taskCountdown  = "countdown"
	taskMonitor    = "monitor"
)

// taskRegistry owns every timer a room schedules. Terminating a room cancels
// all of its tasks in one call, so no callback can outlive its room.
type taskRegistry struct {
	mu    sync.Mutex
	tasks map[string]map[string]*time.Timer
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{
		tasks: make(map[string]map[string]*time.Timer),
	}
}

// Schedule arms fn after d, replacing any pending task with the same name.
func (t *taskRegistry) Schedule(roomID, name string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	group := t.tasks[roomID]
	if group == nil {
		group = make(map[string]*time.Timer)
		t.tasks[roomID] = group
	}
	if existing, ok := group[name]; ok {
		existing.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if group, ok := t.tasks[roomID]; ok && group[name] == timer {
			delete(group, name)
			if len(group) == 0 {
				delete(t.tasks, roomID)
			}
		}
		t.mu.Unlock()
		fn()
	})
	group[name] = timer
}

func (t *taskRegistry) Cancel(roomID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	group := t.tasks[roomID]
	if group == nil {
		return
	}
	if timer, ok := group[name]; ok {
		timer.Stop()
		delete(group, name)
	}
	if len(group) == 0 {
		delete(t.tasks, roomID)
	}
}

func (t *taskRegistry) CancelAll(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, timer := range t.tasks[roomID] {
		timer.Stop()
	}
	delete(t.tasks, roomID)
}

func (t *taskRegistry) Pending(roomID, name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	group := t.tasks[roomID]
	if group == nil {
		return false
	}
	_, ok := group[name]
	return ok
}
