// Package scheduler stores link posts a user wants submitted later.
//
// Nothing in this package submits them: a stored post is inert until some
// consumer of the published PostEvent acts on it.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"link_scheduler/internal/lib/dateformat"
	sl "link_scheduler/internal/lib/logger"
	"link_scheduler/internal/models"
	"link_scheduler/internal/storage"
)

var (
	// ErrInvalidDate means the submission date is not in the future.
	ErrInvalidDate = errors.New("invalid date")
	// ErrMalformedDate means the date does not match the layout.
	ErrMalformedDate = errors.New("malformed date")
	ErrPostNotFound  = errors.New("post not found")
)

type PostStorage interface {
	SavePost(ctx context.Context, p *models.Post) error
	Post(ctx context.Context, id int64) (models.Post, error)
	PostsByUser(ctx context.Context, userID int64) ([]models.Post, error)
	DeletePost(ctx context.Context, id int64) error
}

type EventPublisher interface {
	PublishPostEvent(ctx context.Context, event models.PostEvent) error
}

// PostInput is the form a user fills in to schedule or edit a post.
type PostInput struct {
	Title       string
	Subreddit   string
	URL         string
	SendReplies bool
	Date        string
}

type Scheduler struct {
	log    *slog.Logger
	posts  PostStorage
	events EventPublisher
	layout string
	loc    *time.Location
	now    func() time.Time
}

// New builds a Scheduler. events may be nil.
func New(
	log *slog.Logger,
	posts PostStorage,
	events EventPublisher,
	layout string,
	loc *time.Location,
) *Scheduler {
	return &Scheduler{
		log:    log,
		posts:  posts,
		events: events,
		layout: layout,
		loc:    loc,
		now:    time.Now,
	}
}

func (s *Scheduler) Layout() string {
	return s.layout
}

func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// * Schedule сохраняет новый пост и возвращает все посты пользователя
func (s *Scheduler) Schedule(ctx context.Context, user models.User, in PostInput) ([]models.Post, error) {
	const op = "scheduler.Schedule"

	log := s.log.With(slog.String("op", op), slog.Int64("uid", user.ID))

	post := models.Post{
		UserID:             user.ID,
		Sent:               false,
		Title:              in.Title,
		Subreddit:          in.Subreddit,
		URL:                in.URL,
		SubmissionResponse: models.NotYetSent,
	}
	if in.SendReplies {
		post.SendReplies = true
	}

	date, err := s.futureDate(in.Date)
	if err != nil {
		log.Info("rejected schedule", sl.Err(err))
		return nil, err
	}
	post.SubmissionDate = date

	if err := s.posts.SavePost(ctx, &post); err != nil {
		log.Error("failed to save post", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("post scheduled", slog.Int64("post_id", post.ID), slog.Time("submission_date", post.SubmissionDate))

	s.publish(ctx, models.PostScheduled, post)

	posts, err := s.posts.PostsByUser(ctx, user.ID)
	if err != nil {
		log.Error("failed to list posts", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return posts, nil
}

func (s *Scheduler) Posts(ctx context.Context, user models.User) ([]models.Post, error) {
	const op = "scheduler.Posts"

	posts, err := s.posts.PostsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return posts, nil
}

// Post loads a post by id. Ownership is not checked.
func (s *Scheduler) Post(ctx context.Context, id int64) (models.Post, error) {
	const op = "scheduler.Post"

	post, err := s.posts.Post(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrPostNotFound) {
			return models.Post{}, ErrPostNotFound
		}

		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	return post, nil
}

// * Update перезаписывает поля поста; отсутствие sendreplies сбрасывает флаг.
// Поля sent и submission_response не меняются.
func (s *Scheduler) Update(ctx context.Context, id int64, in PostInput) error {
	const op = "scheduler.Update"

	log := s.log.With(slog.String("op", op), slog.Int64("post_id", id))

	post, err := s.Post(ctx, id)
	if err != nil {
		return err
	}

	post.Title = in.Title
	post.Subreddit = in.Subreddit
	post.URL = in.URL
	post.SendReplies = in.SendReplies

	date, err := s.futureDate(in.Date)
	if err != nil {
		log.Info("rejected update", sl.Err(err))
		return err
	}
	post.SubmissionDate = date

	if err := s.posts.SavePost(ctx, &post); err != nil {
		if errors.Is(err, storage.ErrPostNotFound) {
			return ErrPostNotFound
		}

		log.Error("failed to save post", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("post updated")

	s.publish(ctx, models.PostUpdated, post)

	return nil
}

// Delete removes a post by id. Ownership is not checked.
func (s *Scheduler) Delete(ctx context.Context, id int64) error {
	const op = "scheduler.Delete"

	if err := s.posts.DeletePost(ctx, id); err != nil {
		if errors.Is(err, storage.ErrPostNotFound) {
			return ErrPostNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("post deleted", slog.String("op", op), slog.Int64("post_id", id))

	s.publish(ctx, models.PostDeleted, models.Post{ID: id})

	return nil
}

// FormatDate renders a stored date the way the forms expect it.
func (s *Scheduler) FormatDate(t time.Time) string {
	return dateformat.Format(s.layout, t, s.loc)
}

func (s *Scheduler) futureDate(value string) (time.Time, error) {
	date, err := dateformat.Parse(s.layout, value, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedDate, err)
	}

	if !date.After(s.now()) {
		return time.Time{}, ErrInvalidDate
	}

	return date, nil
}

// публикация не влияет на результат запроса
func (s *Scheduler) publish(ctx context.Context, typ models.PostEventType, post models.Post) {
	if s.events == nil {
		return
	}

	event := models.PostEvent{
		Type:      typ,
		PostID:    post.ID,
		UserID:    post.UserID,
		Subreddit: post.Subreddit,
		At:        s.now(),
	}
	if !post.SubmissionDate.IsZero() {
		date := post.SubmissionDate
		event.SubmissionDate = &date
	}

	if err := s.events.PublishPostEvent(ctx, event); err != nil {
		s.log.Warn("failed to publish post event",
			slog.String("type", string(typ)),
			slog.Int64("post_id", post.ID),
			sl.Err(err),
		)
	}
}
