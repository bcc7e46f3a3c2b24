package goEventHub

// Field identifies one SessionState field. Mutations report the fields they
// write so subscribers can skip irrelevant changes.
type Field uint16

const (
	FieldMessage Field = 1 << iota
	FieldAuth
	FieldAuth2
	FieldDemo
	FieldLocation
	FieldFeedTab
	FieldFeed
)

// Has reports whether f contains every bit of other.
func (f Field) Has(other Field) bool {
	return f&other == other && other != 0
}

func (f Field) String() string {
	if f == 0 {
		return "none"
	}
	names := []struct {
		bit  Field
		name string
	}{
		{FieldMessage, "message"},
		{FieldAuth, "auth"},
		{FieldAuth2, "auth2"},
		{FieldDemo, "demo"},
		{FieldLocation, "location"},
		{FieldFeedTab, "feed_tab"},
		{FieldFeed, "feed"},
	}
	out := ""
	for _, n := range names {
		if f&n.bit == 0 {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += n.name
	}
	return out
}

// Mutation is a typed state change. Apply must only write the fields named by
// Writes.
type Mutation interface {
	Writes() Field
	Apply(s *SessionState)
}

// SetMessage replaces the status message.
type SetMessage struct{ Text string }

func (SetMessage) Writes() Field { return FieldMessage }

func (m SetMessage) Apply(s *SessionState) {
	text := m.Text
	s.Message = &text
}

// SetAuth records the server-reported login flag.
type SetAuth struct{ Value bool }

func (SetAuth) Writes() Field { return FieldAuth }

func (m SetAuth) Apply(s *SessionState) { s.Auth = m.Value }

// MarkPasswordReset flips Auth2 to true. There is no mutation that clears it.
type MarkPasswordReset struct{}

func (MarkPasswordReset) Writes() Field { return FieldAuth2 }

func (MarkPasswordReset) Apply(s *SessionState) { s.Auth2 = true }

// SetDemoBackground replaces the background of one demo entry. Out of range
// indexes leave the list untouched.
type SetDemoBackground struct {
	Index int
	Color string
}

func (SetDemoBackground) Writes() Field { return FieldDemo }

func (m SetDemoBackground) Apply(s *SessionState) {
	if m.Index < 0 || m.Index >= len(s.Demo) {
		return
	}
	s.Demo[m.Index].Background = m.Color
}

// ResetDemoBackgrounds restores every demo entry to its initial color.
type ResetDemoBackgrounds struct{}

func (ResetDemoBackgrounds) Writes() Field { return FieldDemo }

func (ResetDemoBackgrounds) Apply(s *SessionState) {
	for i := range s.Demo {
		s.Demo[i].Background = s.Demo[i].Initial
	}
}

// SetLocation stores a picked location.
type SetLocation struct{ Selection LocationSelection }

func (SetLocation) Writes() Field { return FieldLocation }

func (m SetLocation) Apply(s *SessionState) {
	sel := m.Selection
	if m.Selection.Location != nil {
		ll := *m.Selection.Location
		sel.Location = &ll
	}
	s.Location = &sel
}

// SetFeedTab switches the active feed tab.
type SetFeedTab struct{ Tab FeedTab }

func (SetFeedTab) Writes() Field { return FieldFeedTab }

func (m SetFeedTab) Apply(s *SessionState) { s.FeedTab = m.Tab }

// SetFeed replaces the events listed under one tab.
type SetFeed struct {
	Tab    FeedTab
	Events []Event
}

func (SetFeed) Writes() Field { return FieldFeed }

func (m SetFeed) Apply(s *SessionState) {
	if s.Feed == nil {
		s.Feed = map[FeedTab][]Event{}
	}
	s.Feed[m.Tab] = append([]Event(nil), m.Events...)
}
