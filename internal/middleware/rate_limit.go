package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"novea_back_end/internal/database"
)

const (
	// Limites par endpoint
	SubmitRefundMaxAttempts = 10 // soumissions par utilisateur et par heure
	APIMaxRequests          = 100 // par minute pour les endpoints généraux

	// Durées de cooldown
	SubmitRefundCooldown = 1 * time.Hour
	APICooldown          = 1 * time.Minute
)

// SubmitRefundRateLimit limite les soumissions de remboursement par
// utilisateur. Protection volumétrique uniquement : les vraies bornes métier
// (demande unique en attente, trois rejets) vivent dans la machine à états.
func SubmitRefundRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		ctx := context.Background()
		key := "refund_submit_attempts:" + userID

		pipe := database.Redis.Pipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, SubmitRefundCooldown)
		if _, err := pipe.Exec(ctx); err != nil {
			// Redis indisponible : on laisse passer, la machine à états borne déjà
			c.Next()
			return
		}

		if incr.Val() > SubmitRefundMaxAttempts {
			ttl := database.Redis.TTL(ctx, key).Val()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de demandes de remboursement. Réessayez dans %d minutes", int(ttl.Minutes())+1),
				"retry_after": int(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// APIRateLimit limite le débit global par utilisateur sur les lectures
func APIRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		ctx := context.Background()
		key := "api_requests:" + userID

		pipe := database.Redis.Pipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, APICooldown)
		if _, err := pipe.Exec(ctx); err != nil {
			c.Next()
			return
		}

		if incr.Val() > APIMaxRequests {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Trop de requêtes, ralentissez"})
			c.Abort()
			return
		}

		c.Next()
	}
}
