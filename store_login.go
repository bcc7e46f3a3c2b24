package goEventHub

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrEthical07/goEventHub/internal/backend"
)

const actionLogin = "login"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the decoded body of a successful login. The backend may
// hand back the access token as "token" or "access_token"; Raw keeps the
// full payload.
type LoginResponse struct {
	Token       string          `json:"token,omitempty"`
	AccessToken string          `json:"access_token,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// BearerToken returns whichever token field the backend populated.
func (r LoginResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// Login reports true iff the backend answered 200 with a JSON body. It does
// not persist any token; use LoginResult and SaveToken for that.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	return s.LoginResult(ctx, email, password).IsOk()
}

// LoginResult is Login with the decoded payload.
func (s *Store) LoginResult(ctx context.Context, email, password string) Result[LoginResponse] {
	start := time.Now()
	if aerr := s.ready(); aerr != nil {
		aerr.Action = actionLogin
		return Err[LoginResponse](aerr)
	}

	resp, aerr := s.call(ctx, actionLogin, backend.Request{
		Method: http.MethodPost,
		Path:   "/login",
		Body:   loginRequest{Email: email, Password: password},
	})

	var out LoginResponse
	switch {
	case aerr != nil:
	case !resp.OK():
		aerr = statusFailure(actionLogin, KindBusiness, resp)
	default:
		// Only objects carry token fields; any other JSON value still counts.
		var raw json.RawMessage
		if err := resp.Decode(&raw); err != nil {
			aerr = decodeFailure(actionLogin, resp, err)
			break
		}
		_ = json.Unmarshal(raw, &out)
		out.Raw = raw
	}

	s.record(ctx, actionLogin, start, resp.RequestID, aerr,
		MetricLoginSuccess, MetricLoginFailure, nil)
	if aerr != nil {
		return Err[LoginResponse](aerr)
	}
	return Ok(out)
}
