package goEventHub

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/goEventHub/internal/backend"
)

const actionResetPassword = "reset_password"

// Status messages written by ResetPassword.
const (
	MessagePasswordChanged = "Password successfully changed"
	MessageResetFailed     = "Something went wrong, try again"
	MessageNetworkError    = "Network error, please try again"
)

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetPassword sets a new password using the one-time token from the
// recovery link. The outcome is only visible through state: on success Message
// becomes MessagePasswordChanged and Auth2 flips to true; a rejection writes
// MessageResetFailed and a transport failure MessageNetworkError, leaving Auth2
// as it was.
func (s *Store) ResetPassword(ctx context.Context, password, token string) {
	_ = s.ResetPasswordResult(ctx, password, token)
}

// ResetPasswordResult returns the message written to state on success.
func (s *Store) ResetPasswordResult(ctx context.Context, password, token string) Result[string] {
	start := time.Now()
	if aerr := s.ready(); aerr != nil {
		aerr.Action = actionResetPassword
		return Err[string](aerr)
	}

	resp, aerr := s.call(ctx, actionResetPassword, backend.Request{
		Method:     http.MethodPut,
		Path:       "/reset-password",
		Bearer:     token,
		SendBearer: true,
		Body:       resetPasswordRequest{Password: password},
	})
	if aerr == nil && !resp.OK() {
		aerr = statusFailure(actionResetPassword, KindBusiness, resp)
	}

	s.record(ctx, actionResetPassword, start, resp.RequestID, aerr,
		MetricResetSuccess, MetricResetFailure, nil)

	switch {
	case aerr == nil:
		s.dispatch(SetMessage{Text: MessagePasswordChanged}, MarkPasswordReset{})
		return Ok(MessagePasswordChanged)
	case aerr.Kind == KindTransport:
		s.dispatch(SetMessage{Text: MessageNetworkError})
	default:
		s.dispatch(SetMessage{Text: MessageResetFailed})
	}
	return Err[string](aerr)
}
