package rf

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetRefundStatus retourne le statut projeté de la commande : la seule
// valeur sur laquelle l'interface branche, jamais l'historique brut.
func GetRefundStatus(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	detail, err := svc.Status(c.Request.Context(), orderID, userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ListRefundHistory retourne le ledger complet d'une commande, de la
// demande la plus ancienne à la plus récente
func ListRefundHistory(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	history, err := svc.History(c.Request.Context(), orderID, userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refunds": history,
		"count":   len(history),
	})
}

// GetMyRefunds retourne les demandes de l'utilisateur connecté, toutes
// commandes confondues
func GetMyRefunds(c *gin.Context) {
	userID := c.GetString("user_id")

	refunds, err := svc.MyRefunds(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refunds": refunds,
		"count":   len(refunds),
	})
}

// GetAllRefunds retourne toutes les demandes (admin)
func GetAllRefunds(c *gin.Context) {
	refunds, err := svc.AllRefunds(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refunds": refunds,
		"count":   len(refunds),
	})
}
