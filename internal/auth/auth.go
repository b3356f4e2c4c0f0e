// Package auth carries the authenticated user through request contexts.
package auth

import (
	"context"
	"errors"
)

type ctxkey string

const userkey ctxkey = "autheduser"

var ErrNotAuthenticated = errors.New("user not authenticated")

type AuthedUser struct {
	DBID     int64
	Username string
}

func StoreUserInContext(ctx context.Context, dbid int64, username string) context.Context {
	return context.WithValue(ctx, userkey, &AuthedUser{
		DBID:     dbid,
		Username: username,
	})
}

func UserFromContext(ctx context.Context) *AuthedUser {
	au, ok := ctx.Value(userkey).(*AuthedUser)
	if ok {
		return au
	}
	return nil
}

// RequireUser returns the authenticated user or ErrNotAuthenticated. Every
// store-touching operation calls this before doing any work.
func RequireUser(ctx context.Context) (*AuthedUser, error) {
	au := UserFromContext(ctx)
	if au == nil {
		return nil, ErrNotAuthenticated
	}
	return au, nil
}
