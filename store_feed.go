package goEventHub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/goEventHub/internal/backend"
)

const actionFeed = "feed"

// SetFeedTab switches the active feed tab.
func (s *Store) SetFeedTab(tab FeedTab) error {
	if s == nil {
		return ErrStoreNotReady
	}
	if !tab.Valid() {
		_, err := ParseFeedTab(string(tab))
		return err
	}
	s.dispatch(SetFeedTab{Tab: tab})
	return nil
}

// FetchFeed loads the events of tab and stores them under Feed[tab]. The
// stored access token is sent when present. Failures return an *ActionError
// and leave the previous events in place.
func (s *Store) FetchFeed(ctx context.Context, tab FeedTab) ([]Event, error) {
	return s.FetchFeedResult(ctx, tab).Unwrap()
}

// FetchFeedResult is FetchFeed returning a Result, for callers that branch on ErrorKind.
func (s *Store) FetchFeedResult(ctx context.Context, tab FeedTab) Result[[]Event] {
	start := time.Now()
	if aerr := s.ready(); aerr != nil {
		aerr.Action = actionFeed
		return Err[[]Event](aerr)
	}
	path, err := s.config.feedPath(tab)
	if err != nil {
		return Err[[]Event](&ActionError{Action: actionFeed, Kind: KindBusiness, Message: err.Error(), Err: err})
	}

	token, terr := s.accessToken(ctx)
	if terr != nil && terr.Kind == KindTransport {
		terr.Action = actionFeed
		s.record(ctx, actionFeed, start, requestIDFromContext(ctx), terr,
			MetricFeedSuccess, MetricFeedFailure, feedMetadata(tab, -1))
		return Err[[]Event](terr)
	}

	resp, aerr := s.call(ctx, actionFeed, backend.Request{
		Method: http.MethodGet,
		Path:   path,
		Bearer: token,
	})

	var events []Event
	switch {
	case aerr != nil:
	case !resp.OK():
		aerr = statusFailure(actionFeed, KindBusiness, resp)
	default:
		if events, err = decodeEvents(resp); err != nil {
			aerr = decodeFailure(actionFeed, resp, err)
		}
	}

	count := len(events)
	if aerr != nil {
		count = -1
	}
	s.record(ctx, actionFeed, start, resp.RequestID, aerr,
		MetricFeedSuccess, MetricFeedFailure, feedMetadata(tab, count))
	if aerr != nil {
		return Err[[]Event](aerr)
	}

	s.dispatch(SetFeed{Tab: tab, Events: events})
	return Ok(events)
}

// decodeEvents accepts a bare array or an {"events": [...]} envelope. The
// first byte picks the shape, so an element error is reported as is. An
// object without "events" is not an empty feed.
func decodeEvents(resp backend.Response) ([]Event, error) {
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", backend.ErrDecode)
	}

	switch body[0] {
	case '[', 'n':
		var list []Event
		if err := resp.Decode(&list); err != nil {
			return nil, err
		}
		if list == nil {
			list = []Event{}
		}
		return list, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := resp.Decode(&envelope); err != nil {
			return nil, err
		}
		raw, ok := envelope["events"]
		if !ok {
			return nil, fmt.Errorf("%w: object without events", backend.ErrDecode)
		}
		var list []Event
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: events: %v", backend.ErrDecode, err)
		}
		if list == nil {
			list = []Event{}
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%w: expected events array or object", backend.ErrDecode)
	}
}

func feedMetadata(tab FeedTab, count int) func() map[string]string {
	return func() map[string]string {
		md := map[string]string{"tab": string(tab)}
		if count >= 0 {
			md["count"] = strconv.Itoa(count)
		}
		return md
	}
}
