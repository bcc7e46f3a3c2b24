package goEventHub

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goEventHub/bearer"
	"github.com/MrEthical07/goEventHub/internal/backend"
)

const actionValidateToken = "validate_token"

type validTokenResponse struct {
	IsLogged bool `json:"is_logged"`
}

// ValidateToken sends the stored access token to the backend. On HTTP 200 it
// sets Auth to the reported is_logged flag and returns it. Every other outcome
// returns an *AuthValidationError carrying the server message and leaves Auth
// unchanged. It is the only action that returns its failures.
func (s *Store) ValidateToken(ctx context.Context) (bool, error) {
	res := s.ValidateTokenResult(ctx)
	if !res.IsOk() {
		return false, newAuthValidationError(res.Failure())
	}
	return res.Value(), nil
}

// ValidateTokenResult is ValidateToken without the error mapping.
func (s *Store) ValidateTokenResult(ctx context.Context) Result[bool] {
	start := time.Now()
	if aerr := s.ready(); aerr != nil {
		aerr.Action = actionValidateToken
		return Err[bool](aerr)
	}

	token, aerr := s.accessToken(ctx)
	if aerr != nil {
		aerr.Action = actionValidateToken
		s.record(ctx, actionValidateToken, start, requestIDFromContext(ctx), aerr,
			MetricTokenValid, MetricTokenInvalid, nil)
		return Err[bool](aerr)
	}

	resp, aerr := s.call(ctx, actionValidateToken, backend.Request{
		Method: http.MethodGet,
		Path:   "/valid-token",
		Bearer: token,
	})

	var payload validTokenResponse
	switch {
	case aerr != nil:
	case !resp.OK():
		aerr = statusFailure(actionValidateToken, KindAuth, resp)
	default:
		if err := resp.Decode(&payload); err != nil {
			aerr = decodeFailure(actionValidateToken, resp, err)
		}
	}

	s.record(ctx, actionValidateToken, start, resp.RequestID, aerr,
		MetricTokenValid, MetricTokenInvalid, nil)
	if aerr != nil {
		return Err[bool](aerr)
	}

	s.dispatch(SetAuth{Value: payload.IsLogged})
	return Ok(payload.IsLogged)
}

// accessToken reads the configured slot. An empty slot is an auth failure;
// an unreadable one is a transport failure.
func (s *Store) accessToken(ctx context.Context) (string, *ActionError) {
	token, ok, err := s.tokens.Get(ctx, s.config.Token.StorageKey)
	if err != nil {
		return "", &ActionError{Kind: KindTransport, Err: err}
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", &ActionError{Kind: KindAuth, Message: ErrNoAccessToken.Error(), Err: ErrNoAccessToken}
	}
	return token, nil
}

// SaveToken stores token in the configured slot, e.g. after a LoginResult.
func (s *Store) SaveToken(ctx context.Context, token string) error {
	if aerr := s.ready(); aerr != nil {
		return ErrStoreNotReady
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: empty token", ErrNoAccessToken)
	}
	return s.tokens.Set(ctx, s.config.Token.StorageKey, token)
}

// ClearToken empties the configured slot. Auth is not touched; only a
// subsequent ValidateToken changes it.
func (s *Store) ClearToken(ctx context.Context) error {
	if aerr := s.ready(); aerr != nil {
		return ErrStoreNotReady
	}
	return s.tokens.Delete(ctx, s.config.Token.StorageKey)
}

// TokenClaims decodes the stored token locally without verifying its
// signature. Opaque tokens fail with bearer.ErrMalformedToken.
func (s *Store) TokenClaims(ctx context.Context) (*bearer.Claims, error) {
	if aerr := s.ready(); aerr != nil {
		return nil, ErrStoreNotReady
	}
	token, aerr := s.accessToken(ctx)
	if aerr != nil {
		return nil, aerr.Err
	}
	return bearer.Inspect(token)
}
