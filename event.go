package goEventHub

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FeedTab is one of the three feed tabs. The values are the tab keys the
// frontend routes on.
type FeedTab string

const (
	// FeedForYou lists suggested events.
	FeedForYou FeedTab = "for-you"
	// FeedJoined lists events the user is a member of.
	FeedJoined FeedTab = "Joined"
	// FeedMine lists events the user owns.
	FeedMine FeedTab = "my-events"
)

// FeedTabs returns the tabs in display order.
func FeedTabs() []FeedTab {
	return []FeedTab{FeedForYou, FeedJoined, FeedMine}
}

// Valid reports whether t is a known tab.
func (t FeedTab) Valid() bool {
	switch t {
	case FeedForYou, FeedJoined, FeedMine:
		return true
	}
	return false
}

// ParseFeedTab accepts the tab key case-insensitively.
func ParseFeedTab(raw string) (FeedTab, error) {
	raw = strings.TrimSpace(raw)
	for _, t := range FeedTabs() {
		if strings.EqualFold(string(t), raw) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFeedTab, raw)
}

// EventStatus is the lifecycle status of an event.
type EventStatus string

const (
	StatusPlanned    EventStatus = "Planned"
	StatusInProgress EventStatus = "In Progress"
	StatusCompleted  EventStatus = "Completed"
	StatusCanceled   EventStatus = "Canceled"
)

// StatusAt derives the status of an event running from start to end at now.
// A zero end only allows Planned; anything that fits no window is Canceled.
func StatusAt(start, end, now time.Time) EventStatus {
	switch {
	case start.After(now):
		return StatusPlanned
	case end.IsZero():
		return StatusCanceled
	case start.Before(now) && end.After(now):
		return StatusInProgress
	case end.Before(now):
		return StatusCompleted
	default:
		return StatusCanceled
	}
}

// EventTimeLayout is the backend's serialization of event timestamps.
const EventTimeLayout = "2006-01-02 15:04:05 GMT-0700"

// EventTime decodes EventTimeLayout strings. A trailing bare "GMT" (naive
// timestamps on the backend) is read as UTC.
type EventTime struct {
	time.Time
}

func (t *EventTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(EventTimeLayout, raw)
	if err != nil {
		naive, nerr := time.Parse("2006-01-02 15:04:05 GMT", raw)
		if nerr != nil {
			return fmt.Errorf("event time %q: %w", raw, err)
		}
		parsed = naive.UTC()
	}
	t.Time = parsed
	return nil
}

func (t EventTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(EventTimeLayout))
}

// Event is a feed entry as the backend serializes it.
type Event struct {
	ID              int64       `json:"id"`
	OwnerID         int64       `json:"owner"`
	Name            string      `json:"name"`
	Location        string      `json:"location"`
	LocationName    string      `json:"location_name"`
	Date            EventTime   `json:"date"`
	Status          EventStatus `json:"status"`
	Description     string      `json:"description"`
	BudgetPerPerson float64     `json:"budget_per_person"`
	EventTypeID     int         `json:"event_type_id"`
}
