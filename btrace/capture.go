package btrace

// Capture records the calling goroutine's stack under label in the store
// of the current context and returns that store. Without a context the
// trace goes into a new detached store, which the caller must Destroy.
//
// Capture never fails. If nothing can be recorded the slot is left empty
// or, on platforms without stack walking, nil is returned.
func Capture(label string) *Store {
	if !active.supported() {
		return nil
	}
	return captureInto(getOrCreate(Current()), label, 1)
}

// captureInto records a trace into the next slot of s. skip is the number
// of callers of captureInto to omit.
func captureInto(s *Store, label string, skip int) (st *Store) {
	i := s.nextSlot()
	defer func() {
		if r := recover(); r != nil {
			st = s
			capturePanics.Inc()
			logf("capture %q: %v", label, r)
			s.publish(i, &Trace{Label: label})
		}
	}()
	t := active.capture(label, skip+1)
	if t == nil {
		t = &Trace{Label: label}
	}
	s.publish(i, t)
	return s
}
