package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type memRepo struct {
	pending map[string]time.Duration
	failSet error
}

func (m *memRepo) SetStatePending(_ context.Context, stateHash string, ttl time.Duration) error {
	if m.failSet != nil {
		return m.failSet
	}
	m.pending[stateHash] = ttl
	return nil
}

func (m *memRepo) ConsumeState(_ context.Context, stateHash string) (bool, error) {
	_, ok := m.pending[stateHash]
	delete(m.pending, stateHash)
	return ok, nil
}

func newIssuer() (*Issuer, *memRepo) {
	repo := &memRepo{pending: map[string]time.Duration{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, log, 10*time.Minute), repo
}

func TestIssueConsume(t *testing.T) {
	ctx := context.Background()
	s, repo := newIssuer()

	st, err := s.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if st == "" {
		t.Fatal("Issue() returned empty state")
	}
	if _, stored := repo.pending[st]; stored {
		t.Error("raw state must not be stored")
	}
	if ttl := repo.pending[hashState(st)]; ttl != 10*time.Minute {
		t.Errorf("stored ttl = %v", ttl)
	}

	if err := s.Consume(ctx, st); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if err := s.Consume(ctx, st); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Consume() error = %v, want ErrInvalidState", err)
	}
}

func TestConsumeUnknown(t *testing.T) {
	s, _ := newIssuer()

	for _, st := range []string{"", "never-issued"} {
		if err := s.Consume(context.Background(), st); !errors.Is(err, ErrInvalidState) {
			t.Errorf("Consume(%q) error = %v, want ErrInvalidState", st, err)
		}
	}
}

func TestIssueStoreFailure(t *testing.T) {
	s, repo := newIssuer()
	repo.failSet = errors.New("redis down")

	if _, err := s.Issue(context.Background()); err == nil {
		t.Error("Issue() expected error")
	}
}
