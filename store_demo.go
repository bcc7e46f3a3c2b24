package goEventHub

import "fmt"

// SetDemoItemColor replaces the background of demo entry index. Title and
// Initial are kept. An index outside the list is ignored without notifying
// subscribers.
func (s *Store) SetDemoItemColor(index int, color string) {
	_ = s.SetDemoItemColorStrict(index, color)
}

// SetDemoItemColorStrict is SetDemoItemColor reporting ErrDemoIndexOutOfRange.
func (s *Store) SetDemoItemColorStrict(index int, color string) error {
	if s == nil {
		return ErrStoreNotReady
	}
	s.mu.RLock()
	n := len(s.state.Demo)
	s.mu.RUnlock()
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrDemoIndexOutOfRange, index, n)
	}
	s.dispatch(SetDemoBackground{Index: index, Color: color})
	return nil
}

// ResetDemoColors restores every demo entry to its initial background.
func (s *Store) ResetDemoColors() {
	if s == nil {
		return
	}
	s.dispatch(ResetDemoBackgrounds{})
}
