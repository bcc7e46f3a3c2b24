package goEventHub

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrEthical07/goEventHub/internal/backend"
)

const actionGreeting = "greeting"

// Greeting is the payload of the hello endpoint. Fields holds every key the
// backend sent, Message the "message" key when it is a string.
type Greeting struct {
	Message string
	Fields  map[string]json.RawMessage
}

// FetchGreeting calls the hello endpoint and stores its message. Any failure
// is logged and yields nil.
func (s *Store) FetchGreeting(ctx context.Context) *Greeting {
	res := s.FetchGreetingResult(ctx)
	if !res.IsOk() {
		return nil
	}
	g := res.Value()
	return &g
}

// FetchGreetingResult is FetchGreeting without the nil mapping.
func (s *Store) FetchGreetingResult(ctx context.Context) Result[Greeting] {
	start := time.Now()
	if aerr := s.ready(); aerr != nil {
		aerr.Action = actionGreeting
		return Err[Greeting](aerr)
	}

	resp, aerr := s.call(ctx, actionGreeting, backend.Request{
		Method: http.MethodGet,
		Path:   "/hello",
	})

	var out Greeting
	hasMessage := false
	switch {
	case aerr != nil:
	case !resp.OK():
		aerr = statusFailure(actionGreeting, KindBusiness, resp)
	default:
		if err := resp.Decode(&out.Fields); err != nil {
			aerr = decodeFailure(actionGreeting, resp, err)
			break
		}
		if raw, ok := out.Fields["message"]; ok {
			hasMessage = json.Unmarshal(raw, &out.Message) == nil
		}
	}

	s.record(ctx, actionGreeting, start, resp.RequestID, aerr,
		MetricGreetingSuccess, MetricGreetingFailure, nil)
	if aerr != nil {
		return Err[Greeting](aerr)
	}

	if hasMessage {
		s.dispatch(SetMessage{Text: out.Message})
	}
	return Ok(out)
}
