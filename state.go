package goEventHub

// DemoItem is one entry of the demo list rendered by the UI.
type DemoItem struct {
	Title      string `json:"title"`
	Background string `json:"background"`
	Initial    string `json:"initial"`
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceAddress is the human readable part of a picked place.
type PlaceAddress struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// LocationSelection is what the map picker hands to the store. A nil Location
// means the autocomplete returned a place without geometry.
type LocationSelection struct {
	Location *LatLng     `json:"location"`
	Address  PlaceAddress `json:"address"`
}

// SessionState is the session-relevant UI state owned by a Store.
//
// Values returned by Store.State are deep copies; mutating them has no effect
// on the store.
type SessionState struct {
	Message  *string
	Auth     bool
	Auth2    bool
	Demo     []DemoItem
	Location *LocationSelection
	FeedTab  FeedTab
	Feed     map[FeedTab][]Event
	Version  uint64
}

// MessageText returns Message or "" when unset.
func (s SessionState) MessageText() string {
	if s.Message == nil {
		return ""
	}
	return *s.Message
}

func defaultDemo() []DemoItem {
	return []DemoItem{
		{Title: "FIRST", Background: "white", Initial: "white"},
		{Title: "SECOND", Background: "white", Initial: "white"},
	}
}

func newSessionState(tab FeedTab) SessionState {
	return SessionState{
		Demo:    defaultDemo(),
		FeedTab: tab,
		Feed:    map[FeedTab][]Event{},
	}
}

func (s SessionState) clone() SessionState {
	out := s
	if s.Message != nil {
		msg := *s.Message
		out.Message = &msg
	}
	out.Demo = append([]DemoItem(nil), s.Demo...)
	if s.Location != nil {
		loc := *s.Location
		if s.Location.Location != nil {
			ll := *s.Location.Location
			loc.Location = &ll
		}
		out.Location = &loc
	}
	out.Feed = make(map[FeedTab][]Event, len(s.Feed))
	for tab, events := range s.Feed {
		out.Feed[tab] = append([]Event(nil), events...)
	}
	return out
}
