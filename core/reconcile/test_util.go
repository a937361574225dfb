package reconcile

import "time"

// NewEngineMock returns an Engine running on a fixed clock that sends notifications synchronously.
func NewEngineMock(deps Deps, now time.Time) *Engine {
	e := NewEngine(deps)
	e.now = func() time.Time { return now }
	e.dispatch = func(task func()) {
		// run synchronously
		task()
	}
	return e
}
