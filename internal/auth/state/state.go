package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "link_scheduler/internal/lib/logger"

	"github.com/google/uuid"
)

var ErrInvalidState = errors.New("invalid oauth state")

type Repo interface {
	SetStatePending(ctx context.Context, stateHash string, ttl time.Duration) error
	ConsumeState(ctx context.Context, stateHash string) (bool, error)
}

// Issuer hands out one-time OAuth state values and checks them on callback.
type Issuer struct {
	repo Repo
	log  *slog.Logger
	ttl  time.Duration
}

func New(repo Repo, log *slog.Logger, ttl time.Duration) *Issuer {
	return &Issuer{
		repo: repo,
		log:  log,
		ttl:  ttl,
	}
}

// * Issue генерирует state и сохраняет только его хеш
func (s *Issuer) Issue(ctx context.Context) (string, error) {
	const op = "state.Issuer.Issue"

	state := uuid.NewString()

	if err := s.repo.SetStatePending(ctx, hashState(state), s.ttl); err != nil {
		s.log.Error("failed to save oauth state", slog.String("op", op), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return state, nil
}

// * Consume проверяет state из callback; повторное использование запрещено
func (s *Issuer) Consume(ctx context.Context, state string) error {
	const op = "state.Issuer.Consume"

	if state == "" {
		return ErrInvalidState
	}

	ok, err := s.repo.ConsumeState(ctx, hashState(state))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		s.log.Warn("unknown or reused oauth state", slog.String("op", op))
		return ErrInvalidState
	}

	return nil
}

func hashState(state string) string {
	hash := sha256.Sum256([]byte(state))
	return hex.EncodeToString(hash[:])
}
