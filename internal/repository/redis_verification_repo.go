package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"account-svc/internal/domain"
)

// redisHashClient es el subconjunto de *redis.Client que usa el store.
type redisHashClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	ExpireAt(ctx context.Context, key string, tm time.Time) *redis.BoolCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	ZRangeByScoreWithScores(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.ZSliceCmd
}

// RedisVerificationRepository guarda un hash por usuario (campo = id de registro).
// El TTL de la clave se fija en expires_at + grace para que el vencimiento
// siga siendo observable por el flujo de consumo antes del desalojo.
// Un sorted set (miembro "kind:userID", score = expires_at en ms) sobrevive al
// desalojo y permite a DeleteExpired reportar los registros vencidos.
type RedisVerificationRepository struct {
	client    redisHashClient
	prefix    string
	expiryKey string
	grace     time.Duration
	timeout   time.Duration
}

type redisVerification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	SecretHash string    `json:"secret_hash"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func NewRedisVerificationRepository(client *redis.Client, grace time.Duration) VerificationRepository {
	if client == nil {
		return nil
	}
	return newRedisVerificationRepository(client, grace)
}

func newRedisVerificationRepository(client redisHashClient, grace time.Duration) *RedisVerificationRepository {
	if grace < 0 {
		grace = 0
	}
	return &RedisVerificationRepository{
		client:    client,
		prefix:    "verify:user:",
		expiryKey: "verify:expiry",
		grace:     grace,
		timeout:   500 * time.Millisecond,
	}
}

func expiryMember(kind domain.VerificationKind, userID string) string {
	return string(kind) + ":" + strings.TrimSpace(userID)
}

// expiryMembers cubre ambos tipos; Issue deja a lo sumo un registro por usuario.
func expiryMembers(userID string) []interface{} {
	return []interface{}{
		expiryMember(domain.VerificationLink, userID),
		expiryMember(domain.VerificationOTP, userID),
	}
}

func (r *RedisVerificationRepository) key(userID string) string {
	return r.prefix + strings.TrimSpace(userID)
}

func (r *RedisVerificationRepository) FindByUserID(ctx context.Context, userID string) ([]domain.Verification, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, r.key(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Verification, 0, len(fields))
	for field, raw := range fields {
		var rv redisVerification
		if err := json.Unmarshal([]byte(raw), &rv); err != nil {
			return nil, fmt.Errorf("decode verification %s: %w", field, err)
		}
		out = append(out, domain.Verification{
			ID:         rv.ID,
			UserID:     rv.UserID,
			Kind:       domain.VerificationKind(rv.Kind),
			SecretHash: rv.SecretHash,
			CreatedAt:  rv.CreatedAt,
			ExpiresAt:  rv.ExpiresAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *RedisVerificationRepository) Insert(ctx context.Context, v domain.Verification) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payload, err := json.Marshal(redisVerification{
		ID:         v.ID,
		UserID:     v.UserID,
		Kind:       string(v.Kind),
		SecretHash: v.SecretHash,
		CreatedAt:  v.CreatedAt,
		ExpiresAt:  v.ExpiresAt,
	})
	if err != nil {
		return err
	}
	key := r.key(v.UserID)
	if err := r.client.HSet(ctx, key, v.ID, string(payload)).Err(); err != nil {
		return err
	}
	if err := r.client.ExpireAt(ctx, key, v.ExpiresAt.Add(r.grace)).Err(); err != nil {
		return err
	}
	return r.client.ZAdd(ctx, r.expiryKey, redis.Z{
		Score:  float64(v.ExpiresAt.UnixMilli()),
		Member: expiryMember(v.Kind, v.UserID),
	}).Err()
}

func (r *RedisVerificationRepository) DeleteByUserID(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return err
	}
	return r.client.ZRem(ctx, r.expiryKey, expiryMembers(userID)...).Err()
}

// DeleteOne usa HDEL, que es atomico y devuelve cuantos campos borro.
func (r *RedisVerificationRepository) DeleteOne(ctx context.Context, userID, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.client.HDel(ctx, r.key(userID), id).Result()
	if err != nil {
		return false, err
	}
	if n != 1 {
		return false, nil
	}
	if err := r.client.ZRem(ctx, r.expiryKey, expiryMembers(userID)...).Err(); err != nil {
		return true, fmt.Errorf("clear expiry index: %w", err)
	}
	return true, nil
}

// DeleteExpired saca del indice los registros vencidos antes de before. Los
// hashes ya los desaloja redis por TTL; el indice solo conoce user_id, kind y
// expires_at, asi que ID llega vacio.
func (r *RedisVerificationRepository) DeleteExpired(ctx context.Context, before time.Time) ([]domain.Verification, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entries, err := r.client.ZRangeByScoreWithScores(ctx, r.expiryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	out := make([]domain.Verification, 0, len(entries))
	members := make([]interface{}, 0, len(entries))
	for _, z := range entries {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		members = append(members, member)
		kind, userID, found := strings.Cut(member, ":")
		if !found || userID == "" {
			continue
		}
		out = append(out, domain.Verification{
			UserID:    userID,
			Kind:      domain.VerificationKind(kind),
			ExpiresAt: time.UnixMilli(int64(z.Score)).UTC(),
		})
	}
	if err := r.client.ZRem(ctx, r.expiryKey, members...).Err(); err != nil {
		return nil, err
	}
	return out, nil
}
