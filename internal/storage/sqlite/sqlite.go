// Package sqlite is the single-file storage backend used in local mode.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"link_scheduler/internal/models"
	"link_scheduler/internal/storage"

	_ "modernc.org/sqlite"
)

type SQLiteRepo struct {
	db     *sql.DB
	sealer storage.TokenSealer
}

func New(path string, sealer storage.TokenSealer) (*SQLiteRepo, error) {
	const op = "storage.sqlite.New"

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%s: failed to create database directory: %w", op, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SQLiteRepo{db: db, sealer: sealer}, nil
}

func (r *SQLiteRepo) Migrate(ctx context.Context) error {
	const op = "storage.sqlite.Migrate"

	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS users(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			access_token TEXT NOT NULL DEFAULT '',
			access_token_digest TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			token_expiration DATETIME,
			need_captcha BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS users_access_token_digest_idx ON users(access_token_digest);`,
		`CREATE TABLE IF NOT EXISTS posts(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			subreddit TEXT NOT NULL,
			url TEXT NOT NULL,
			submission_date DATETIME NOT NULL,
			send_replies BOOLEAN NOT NULL DEFAULT 0,
			sent BOOLEAN NOT NULL DEFAULT 0,
			submission_response TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS posts_user_id_idx ON posts(user_id);`,
	}

	for _, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (r *SQLiteRepo) SaveUser(ctx context.Context, u *models.User) error {
	const op = "storage.sqlite.SaveUser"

	accessToken, err := r.sealer.Seal(u.AccessToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := r.sealer.Seal(u.RefreshToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var expiration sql.NullTime
	if !u.TokenExpiration.IsZero() {
		expiration = sql.NullTime{Time: u.TokenExpiration.UTC(), Valid: true}
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users(username, access_token, access_token_digest, refresh_token, token_expiration, need_captcha)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			access_token = excluded.access_token,
			access_token_digest = excluded.access_token_digest,
			refresh_token = excluded.refresh_token,
			token_expiration = excluded.token_expiration,
			need_captcha = excluded.need_captcha
		RETURNING id`,
		u.Username, accessToken, r.sealer.Digest(u.AccessToken), refreshToken, expiration, u.NeedCaptcha,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *SQLiteRepo) User(ctx context.Context, username string) (models.User, error) {
	const op = "storage.sqlite.User"

	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, access_token, refresh_token, token_expiration, need_captcha
		FROM users WHERE username = ?`, username)

	u, err := r.scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, storage.ErrUserNotFound
	} else if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *SQLiteRepo) UserByAccessToken(ctx context.Context, accessToken string) (models.User, error) {
	const op = "storage.sqlite.UserByAccessToken"

	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, access_token, refresh_token, token_expiration, need_captcha
		FROM users WHERE access_token_digest = ?`, r.sealer.Digest(accessToken))

	u, err := r.scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, storage.ErrUserNotFound
	} else if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *SQLiteRepo) SavePost(ctx context.Context, p *models.Post) error {
	const op = "storage.sqlite.SavePost"

	if p.ID == 0 {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO posts(user_id, title, subreddit, url, submission_date, send_replies, sent, submission_response)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			p.UserID, p.Title, p.Subreddit, p.URL, p.SubmissionDate.UTC(), p.SendReplies, p.Sent, p.SubmissionResponse,
		)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		p.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET title = ?, subreddit = ?, url = ?, submission_date = ?, send_replies = ?, sent = ?, submission_response = ?
		WHERE id = ?`,
		p.Title, p.Subreddit, p.URL, p.SubmissionDate.UTC(), p.SendReplies, p.Sent, p.SubmissionResponse, p.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrPostNotFound
	}

	return nil
}

func (r *SQLiteRepo) Post(ctx context.Context, id int64) (models.Post, error) {
	const op = "storage.sqlite.Post"

	var p models.Post

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, subreddit, url, submission_date, send_replies, sent, submission_response
		FROM posts WHERE id = ?`, id).Scan(
		&p.ID, &p.UserID, &p.Title, &p.Subreddit, &p.URL, &p.SubmissionDate, &p.SendReplies, &p.Sent, &p.SubmissionResponse,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, storage.ErrPostNotFound
	} else if err != nil {
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (r *SQLiteRepo) PostsByUser(ctx context.Context, userID int64) ([]models.Post, error) {
	const op = "storage.sqlite.PostsByUser"

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, subreddit, url, submission_date, send_replies, sent, submission_response
		FROM posts WHERE user_id = ?
		ORDER BY submission_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	posts := []models.Post{}

	for rows.Next() {
		var p models.Post
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Title, &p.Subreddit, &p.URL, &p.SubmissionDate, &p.SendReplies, &p.Sent, &p.SubmissionResponse,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return posts, nil
}

func (r *SQLiteRepo) DeletePost(ctx context.Context, id int64) error {
	const op = "storage.sqlite.DeletePost"

	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrPostNotFound
	}

	return nil
}

func (r *SQLiteRepo) Close() {
	r.db.Close()
}

func (r *SQLiteRepo) scanUser(row *sql.Row) (models.User, error) {
	var (
		u          models.User
		expiration sql.NullTime
	)

	if err := row.Scan(&u.ID, &u.Username, &u.AccessToken, &u.RefreshToken, &expiration, &u.NeedCaptcha); err != nil {
		return models.User{}, err
	}

	if expiration.Valid {
		u.TokenExpiration = expiration.Time
	}

	var err error
	if u.AccessToken, err = r.sealer.Open(u.AccessToken); err != nil {
		return models.User{}, fmt.Errorf("%w: %w", storage.ErrTokenUnreadable, err)
	}
	if u.RefreshToken, err = r.sealer.Open(u.RefreshToken); err != nil {
		return models.User{}, fmt.Errorf("%w: %w", storage.ErrTokenUnreadable, err)
	}

	return u, nil
}
