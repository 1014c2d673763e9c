package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"link_scheduler/internal/config"
	"link_scheduler/internal/models"
	"link_scheduler/internal/storage"

	"github.com/codeGROOVE-dev/retry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the part of *pgxpool.Pool the repository needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type PostgresRepo struct {
	pool   Pool
	sealer storage.TokenSealer
}

func New(ctx context.Context, log *slog.Logger, cfg *config.Config, sealer storage.TokenSealer) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	// база в docker-compose поднимается дольше сервиса
	err = retry.Do(
		func() error {
			return pool.Ping(ctx)
		},
		retry.Attempts(5),
		retry.Delay(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("postgres is not ready yet", slog.Int("attempt", int(n)), slog.String("err", err.Error()))
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return NewWithPool(pool, sealer), nil
}

// NewWithPool wraps an already connected pool.
func NewWithPool(pool Pool, sealer storage.TokenSealer) *PostgresRepo {
	return &PostgresRepo{pool: pool, sealer: sealer}
}

func (r *PostgresRepo) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			access_token TEXT NOT NULL DEFAULT '',
			access_token_digest TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			token_expiration TIMESTAMPTZ,
			need_captcha BOOLEAN NOT NULL DEFAULT FALSE
		);`,
		`CREATE INDEX IF NOT EXISTS users_access_token_digest_idx ON users (access_token_digest);`,
		`CREATE TABLE IF NOT EXISTS posts (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			subreddit TEXT NOT NULL,
			url TEXT NOT NULL,
			submission_date TIMESTAMPTZ NOT NULL,
			send_replies BOOLEAN NOT NULL DEFAULT FALSE,
			sent BOOLEAN NOT NULL DEFAULT FALSE,
			submission_response TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS posts_user_id_idx ON posts (user_id);`,
	}

	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// * SaveUser создает пользователя или обновляет токены существующего
func (r *PostgresRepo) SaveUser(ctx context.Context, u *models.User) error {
	const op = "storage.postgres.SaveUser"

	accessToken, err := r.sealer.Seal(u.AccessToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := r.sealer.Seal(u.RefreshToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO users (username, access_token, access_token_digest, refresh_token, token_expiration, need_captcha)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			access_token_digest = EXCLUDED.access_token_digest,
			refresh_token = EXCLUDED.refresh_token,
			token_expiration = EXCLUDED.token_expiration,
			need_captcha = EXCLUDED.need_captcha
		RETURNING id;
	`

	err = r.pool.QueryRow(ctx, query,
		u.Username,
		accessToken,
		r.sealer.Digest(u.AccessToken),
		refreshToken,
		nullTime(u.TokenExpiration),
		u.NeedCaptcha,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) User(ctx context.Context, username string) (models.User, error) {
	const op = "storage.postgres.User"

	query := `
		SELECT id, username, access_token, refresh_token, token_expiration, need_captcha
		FROM users
		WHERE username = $1;
	`

	u, err := r.scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UserByAccessToken(ctx context.Context, accessToken string) (models.User, error) {
	const op = "storage.postgres.UserByAccessToken"

	query := `
		SELECT id, username, access_token, refresh_token, token_expiration, need_captcha
		FROM users
		WHERE access_token_digest = $1;
	`

	u, err := r.scanUser(r.pool.QueryRow(ctx, query, r.sealer.Digest(accessToken)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) SavePost(ctx context.Context, p *models.Post) error {
	const op = "storage.postgres.SavePost"

	if p.ID == 0 {
		query := `
			INSERT INTO posts (user_id, title, subreddit, url, submission_date, send_replies, sent, submission_response)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id;
		`

		err := r.pool.QueryRow(ctx, query,
			p.UserID, p.Title, p.Subreddit, p.URL, p.SubmissionDate, p.SendReplies, p.Sent, p.SubmissionResponse,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("%s: failed to insert post: %w", op, err)
		}

		return nil
	}

	query := `
		UPDATE posts
		SET title = $1, subreddit = $2, url = $3, submission_date = $4, send_replies = $5, sent = $6, submission_response = $7
		WHERE id = $8
	`

	tag, err := r.pool.Exec(ctx, query,
		p.Title, p.Subreddit, p.URL, p.SubmissionDate, p.SendReplies, p.Sent, p.SubmissionResponse, p.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update post: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrPostNotFound
	}

	return nil
}

func (r *PostgresRepo) Post(ctx context.Context, id int64) (models.Post, error) {
	const op = "storage.postgres.Post"

	query := `
		SELECT id, user_id, title, subreddit, url, submission_date, send_replies, sent, submission_response
		FROM posts
		WHERE id = $1;
	`

	var p models.Post

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.Subreddit,
		&p.URL,
		&p.SubmissionDate,
		&p.SendReplies,
		&p.Sent,
		&p.SubmissionResponse,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Post{}, storage.ErrPostNotFound
		}

		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (r *PostgresRepo) PostsByUser(ctx context.Context, userID int64) ([]models.Post, error) {
	const op = "storage.postgres.PostsByUser"

	query := `
		SELECT id, user_id, title, subreddit, url, submission_date, send_replies, sent, submission_response
		FROM posts
		WHERE user_id = $1
		ORDER BY submission_date, id;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	posts := []models.Post{}

	for rows.Next() {
		var p models.Post

		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Title,
			&p.Subreddit,
			&p.URL,
			&p.SubmissionDate,
			&p.SendReplies,
			&p.Sent,
			&p.SubmissionResponse,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		posts = append(posts, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return posts, nil
}

func (r *PostgresRepo) DeletePost(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeletePost"

	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrPostNotFound
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func (r *PostgresRepo) scanUser(row pgx.Row) (models.User, error) {
	var (
		u          models.User
		expiration *time.Time
	)

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.AccessToken,
		&u.RefreshToken,
		&expiration,
		&u.NeedCaptcha,
	)
	if err != nil {
		return models.User{}, err
	}

	if expiration != nil {
		u.TokenExpiration = *expiration
	}

	if u.AccessToken, err = r.sealer.Open(u.AccessToken); err != nil {
		return models.User{}, fmt.Errorf("%w: %w", storage.ErrTokenUnreadable, err)
	}

	if u.RefreshToken, err = r.sealer.Open(u.RefreshToken); err != nil {
		return models.User{}, fmt.Errorf("%w: %w", storage.ErrTokenUnreadable, err)
	}

	return u, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
