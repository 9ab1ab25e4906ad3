package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/fathima-sithara/realtime-service/internal/apperr"
	"github.com/fathima-sithara/realtime-service/internal/domain"
	"github.com/fathima-sithara/realtime-service/internal/repository"
	"go.uber.org/zap"
)

type TokenValidator interface {
	Validate(token string) (string, error)
}

type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Authenticator turns a bearer token into the profile of an existing user.
// Every failure is reported as apperr.ErrAuthentication.
type Authenticator struct {
	tokens TokenValidator
	users  UserFinder
	log    *zap.SugaredLogger
}

func NewAuthenticator(tokens TokenValidator, users UserFinder, log *zap.SugaredLogger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, log: log}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (*domain.UserProfile, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token missing", apperr.ErrAuthentication)
	}
	userID, err := a.tokens.Validate(token)
	if err != nil {
		a.log.Debugw("token rejected", "err", err)
		return nil, fmt.Errorf("%w: invalid token", apperr.ErrAuthentication)
	}
	u, err := a.users.FindUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: user not found", apperr.ErrAuthentication)
	}
	if err != nil {
		a.log.Warnw("user lookup failed during auth", "user_id", userID, "err", err)
		return nil, fmt.Errorf("%w: user lookup failed", apperr.ErrAuthentication)
	}
	p := u.Profile()
	return &p, nil
}
