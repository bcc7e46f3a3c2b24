package goEventHub

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goEventHub/internal/backend"
	"github.com/MrEthical07/goEventHub/internal/rate"
)

const actionRecoverPassword = "recover_password"

type recoverPasswordRequest struct {
	Email       string `json:"email"`
	FrontendURL string `json:"frontend_url"`
}

// RequestPasswordRecovery asks the backend to mail a reset link pointing at
// Config.PasswordReset.FrontendURL. It reports true only on HTTP 200 and never
// returns an error; failures are logged. With Config.Throttle enabled, an
// address over its budget gets false without a request being sent.
func (s *Store) RequestPasswordRecovery(ctx context.Context, email string) bool {
	return s.RequestPasswordRecoveryResult(ctx, email).IsOk()
}

// RequestPasswordRecoveryResult is RequestPasswordRecovery without the
// boolean mapping.
func (s *Store) RequestPasswordRecoveryResult(ctx context.Context, email string) Result[struct{}] {
	start := time.Now()
	if aerr := s.ready(); aerr != nil {
		aerr.Action = actionRecoverPassword
		return Err[struct{}](aerr)
	}

	if aerr := s.throttleRecovery(ctx, email); aerr != nil {
		s.record(ctx, actionRecoverPassword, start, "", aerr,
			MetricRecoverySuccess, MetricRecoveryFailure, nil)
		return Err[struct{}](aerr)
	}

	resp, aerr := s.call(ctx, actionRecoverPassword, backend.Request{
		Method: http.MethodPost,
		Path:   "/recover-password",
		Body: recoverPasswordRequest{
			Email:       email,
			FrontendURL: s.config.PasswordReset.FrontendURL,
		},
	})
	if aerr == nil && !resp.OK() {
		aerr = statusFailure(actionRecoverPassword, KindBusiness, resp)
	}

	s.record(ctx, actionRecoverPassword, start, resp.RequestID, aerr,
		MetricRecoverySuccess, MetricRecoveryFailure, nil)
	if aerr != nil {
		return Err[struct{}](aerr)
	}
	return Ok(struct{}{})
}

func (s *Store) throttleRecovery(ctx context.Context, email string) *ActionError {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Allow(ctx, "recover", email)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		s.metricInc(MetricRecoveryThrottled)
		return &ActionError{
			Action:  actionRecoverPassword,
			Kind:    KindBusiness,
			Message: ErrRecoveryThrottled.Error(),
			Err:     ErrRecoveryThrottled,
		}
	default:
		return &ActionError{Action: actionRecoverPassword, Kind: KindTransport, Err: err}
	}
}
