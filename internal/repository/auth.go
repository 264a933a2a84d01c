package repository

import (
	"context"
	"errors"
	"net/http"

	"finsync/internal/core"
)

var errIncompleteAuth = errors.New("auth response is missing token or account id")

type Auth struct{ d Doer }

var _ AuthAPI = (*Auth)(nil)

func (a *Auth) SignIn(ctx context.Context, creds core.Credentials) (core.AuthResult, error) {
	return a.authenticate(ctx, "/auth/sign-in", creds)
}

func (a *Auth) SignUp(ctx context.Context, in core.SignUpInput) (core.AuthResult, error) {
	return a.authenticate(ctx, "/auth/sign-up", in)
}

func (a *Auth) authenticate(ctx context.Context, path string, body any) (core.AuthResult, error) {
	res, err := call[core.AuthResult](ctx, a.d, http.MethodPost, path, body)
	if err != nil {
		return core.AuthResult{}, err
	}
	if res.Token == "" || res.Account.ID == "" {
		return core.AuthResult{}, errIncompleteAuth
	}
	return res, nil
}
