package rf

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetOrderSummary retourne le détail de prix réconcilié d'une commande :
// sous-total, remise coupons, frais de port, remise port, total.
// Recalculé à chaque appel depuis les instantanés de la commande.
func GetOrderSummary(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	summary, err := svc.Summary(c.Request.Context(), orderID, userID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
