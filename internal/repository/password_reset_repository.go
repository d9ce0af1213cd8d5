package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ResetTokenLedger records which reset tokens have been redeemed. Consume
// reports true exactly once per jti; later calls report false.
type ResetTokenLedger interface {
	Consume(ctx context.Context, jti, userID string, expiresAt time.Time) (bool, error)
}

type passwordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository stores consumed reset nonces in Postgres.
func NewPasswordResetRepository(pool *pgxpool.Pool) ResetTokenLedger {
	return &passwordResetRepository{pool: pool}
}

func (r *passwordResetRepository) Consume(ctx context.Context, jti, userID string, expiresAt time.Time) (bool, error) {
	if !validID(userID) {
		return false, ErrNotFound
	}
	const query = `
        INSERT INTO password_reset_consumptions (jti, user_id, expires_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (jti) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, jti, userID, expiresAt)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

type redisResetLedger struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisResetLedger keeps consumed nonces in Redis until the token would
// have expired anyway.
func NewRedisResetLedger(client *redis.Client, prefix string) ResetTokenLedger {
	if prefix == "" {
		prefix = "pwreset"
	}
	return &redisResetLedger{client: client, prefix: prefix, now: time.Now}
}

func (l *redisResetLedger) Consume(ctx context.Context, jti, userID string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(l.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return l.client.SetNX(ctx, l.prefix+":"+jti, userID, ttl).Result()
}
