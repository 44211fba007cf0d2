package utils

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"novea_back_end/internal/database"
)

// LogRefundAction trace une action du workflow de remboursement dans les
// logs d'audit (soumission, décision, rejeu de décision). Écrit en
// asynchrone : l'audit ne ralentit jamais la réponse.
func LogRefundAction(c *gin.Context, action, refundID string, detail interface{}) {
	userID := c.GetString("user_id")
	go func() {
		if err := logRefundAsync(userID, action, refundID, detail, true, ""); err != nil {
			log.Printf("❌ Erreur enregistrement log audit: %v", err)
		}
	}()
}

// LogFailedRefundAction trace une action refusée (conflit, préconditions)
func LogFailedRefundAction(c *gin.Context, action, refundID, errorMsg string) {
	userID := c.GetString("user_id")
	go func() {
		if err := logRefundAsync(userID, action, refundID, nil, false, errorMsg); err != nil {
			log.Printf("❌ Erreur enregistrement log audit: %v", err)
		}
	}()
}

func logRefundAsync(userID, action, refundID string, detail interface{}, success bool, errorMsg string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	var detailJSON string
	if detail != nil {
		if data, err := json.Marshal(detail); err == nil {
			detailJSON = string(data)
		}
	}

	return session.Query(`
		INSERT INTO audit_logs (log_id, user_id, action, refund_id, detail, success, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, gocql.TimeUUID(), userID, action, refundID, detailJSON, success, errorMsg, time.Now().UTC()).Exec()
}
