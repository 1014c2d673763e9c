package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/models"
	"link_scheduler/internal/storage"

	"golang.org/x/oauth2"
)

var ErrUserNotFound = errors.New("user not found")

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
}

type UserSaver interface {
	SaveUser(ctx context.Context, u *models.User) error
}

type UserProvider interface {
	User(ctx context.Context, username string) (models.User, error)
	UserByAccessToken(ctx context.Context, accessToken string) (models.User, error)
}

// RemoteAccount is the slice of the Reddit API needed at login.
type RemoteAccount interface {
	Me(ctx context.Context) (string, error)
	NeedsCaptcha(ctx context.Context) (bool, error)
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
	}
}

// * Login создает пользователя при первом входе и обновляет токены и флаг captcha при повторном
func (a *Auth) Login(
	ctx context.Context,
	remote RemoteAccount,
	tok *oauth2.Token,
) (models.User, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	name, err := remote.Me(ctx)
	if err != nil {
		log.Error("failed to fetch identity", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("username", name))

	user, err := a.usrProvider.User(ctx, name)
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		log.Info("first login, creating user")
		user = models.User{Username: name}
	case errors.Is(err, storage.ErrTokenUnreadable):
		// upsert по username сохранит id, старые токены просто перезаписываются
		log.Warn("stored tokens unreadable, replacing them", sl.Err(err))
		user = models.User{Username: name}
	case err != nil:
		log.Error("failed to load user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		user.RefreshToken = tok.RefreshToken
	}
	user.TokenExpiration = tok.Expiry

	needCaptcha, err := remote.NeedsCaptcha(ctx)
	if err != nil {
		log.Error("failed to check captcha requirement", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	user.NeedCaptcha = needCaptcha

	if err := a.usrSaver.SaveUser(ctx, &user); err != nil {
		log.Error("failed to save user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.Int64("uid", user.ID), slog.Bool("need_captcha", user.NeedCaptcha))

	return user, nil
}

func (a *Auth) User(ctx context.Context, username string) (models.User, error) {
	const op = "auth.User"

	user, err := a.usrProvider.User(ctx, username)
	if err != nil {
		// с нечитаемыми токенами пользователь должен войти заново
		if errors.Is(err, storage.ErrUserNotFound) || errors.Is(err, storage.ErrTokenUnreadable) {
			return models.User{}, ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (a *Auth) UserByAccessToken(ctx context.Context, accessToken string) (models.User, error) {
	const op = "auth.UserByAccessToken"

	user, err := a.usrProvider.UserByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) || errors.Is(err, storage.ErrTokenUnreadable) {
			return models.User{}, ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
