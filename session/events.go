package session

// Event types.
const (
	EventSelected   = "selected"
	EventDeselected = "deselected"
	EventCleared    = "cleared"
	EventInspect    = "inspect"
	EventSubmitted  = "submitted"
)

// Event notifies subscribers of a selection or mode change.
type Event struct {
	Type       string `json:"type"`
	Count      int    `json:"count"`
	Inspecting bool   `json:"inspecting"`
	Index      int    `json:"index,omitempty"`
	XPath      string `json:"xpath,omitempty"`
	PayloadID  string `json:"payload_id,omitempty"`
}

const subscriberBuffer = 32

// Subscribe returns a channel of change events and a cancel func. Slow
// subscribers miss events rather than stall the session. The channel is
// closed by cancel or by Close.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// changed fills the state fields and emits. It runs on the session goroutine.
func (s *Session) changed(ev Event) {
	ev.Count = s.reg.SelectedCount()
	ev.Inspecting = s.insp.Active()
	s.emit(ev)
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Debug("session: subscriber lagging, event dropped", "subscriber", id, "type", ev.Type)
		}
	}
}
