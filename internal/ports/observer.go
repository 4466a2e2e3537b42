package ports

import "github.com/xoelrdgz/trafficradar/internal/domain"

// StateObserver receives every committed snapshot.
//
// The snapshot is a private copy; observers may keep it. Calls are made from
// the poller loop goroutine, so slow observers delay the next cycle.
type StateObserver interface {
	OnSnapshot(s domain.Snapshot)
}

// StateObserverFunc adapts a function to StateObserver.
type StateObserverFunc func(s domain.Snapshot)

func (f StateObserverFunc) OnSnapshot(s domain.Snapshot) { f(s) }
