package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Durée de rétention d'une clé d'idempotence de soumission
	IdempotencyTTL = 24 * time.Hour

	// Valeur posée tant que la soumission d'origine n'a pas abouti
	reservedMarker = "__reserved__"
)

// RedisIdempotency réserve les clés d'idempotence de Submit dans Redis :
// un client qui retente après un timeout retrouve sa demande d'origine au
// lieu d'en créer une seconde.
type RedisIdempotency struct {
	Redis *redis.Client
}

func NewRedisIdempotency(rdb *redis.Client) *RedisIdempotency {
	return &RedisIdempotency{Redis: rdb}
}

func idempotencyKey(key string) string {
	return "refund_idem:" + key
}

// Reserve tente de poser la clé. fresh=true : la clé est à nous, l'appelant
// doit conclure par Fulfill ou Release. fresh=false : soit la clé porte déjà
// l'id de la demande créée (rejeu), soit la soumission d'origine est encore
// en vol (existingID vide).
func (r *RedisIdempotency) Reserve(ctx context.Context, key string) (string, bool, error) {
	ok, err := r.Redis.SetNX(ctx, idempotencyKey(key), reservedMarker, IdempotencyTTL).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	val, err := r.Redis.Get(ctx, idempotencyKey(key)).Result()
	if err == redis.Nil {
		// La réservation concurrente vient d'être relâchée, on réessaye une fois
		ok, err := r.Redis.SetNX(ctx, idempotencyKey(key), reservedMarker, IdempotencyTTL).Result()
		if err != nil {
			return "", false, err
		}
		return "", ok, nil
	}
	if err != nil {
		return "", false, err
	}
	if val == reservedMarker {
		return "", false, nil
	}
	return val, false, nil
}

// Fulfill remplace le marqueur par l'identifiant de la demande créée
func (r *RedisIdempotency) Fulfill(ctx context.Context, key, requestID string) error {
	return r.Redis.Set(ctx, idempotencyKey(key), requestID, IdempotencyTTL).Err()
}

// Release libère la clé après un échec : l'échec étant terminal, un nouvel
// essai du client doit repasser toutes les préconditions
func (r *RedisIdempotency) Release(ctx context.Context, key string) {
	if err := r.Redis.Del(ctx, idempotencyKey(key)).Err(); err != nil {
		log.Printf("⚠️ Erreur libération clé d'idempotence %s: %v", key, err)
	}
}
