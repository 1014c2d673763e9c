package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// *  SetStatePending сохраняет выданный OAuth state до возврата пользователя
func (r *RedisRepo) SetStatePending(ctx context.Context, stateHash string, ttl time.Duration) error {
	const op = "storage.redis.SetStatePending"

	key := fmt.Sprintf("oauth:state:%s", stateHash)

	if err := r.client.Set(ctx, key, time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * ConsumeState атомарно удаляет state (GETDEL)
// Возвращает true если state был выдан и еще не использован
func (r *RedisRepo) ConsumeState(ctx context.Context, stateHash string) (bool, error) {
	const op = "storage.redis.ConsumeState"

	key := fmt.Sprintf("oauth:state:%s", stateHash)

	err := r.client.GetDel(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}
