// Package rf expose le workflow de remboursement sur HTTP : dépôt des
// demandes côté client, décision et consultation côté admin.
package rf

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"novea_back_end/internal/refund"
	"novea_back_end/internal/utils"
)

var svc *refund.Service

// Init branche les handlers sur la machine à états
func Init(s *refund.Service) {
	svc = s
}

// statusFor traduit la taxonomie d'erreurs du cœur en code HTTP.
// AlreadyRefunded et LimitReached sont des états permanents de la commande :
// 410 et 423, jamais de "réessayer" côté client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, refund.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, refund.ErrValidation), errors.Is(err, refund.ErrAttachment):
		return http.StatusBadRequest
	case errors.Is(err, refund.ErrConflict), errors.Is(err, refund.ErrAlreadyPending):
		return http.StatusConflict
	case errors.Is(err, refund.ErrAlreadyRefunded):
		return http.StatusGone
	case errors.Is(err, refund.ErrLimitReached):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

func parseOrderID(c *gin.Context) (gocql.UUID, bool) {
	orderUUID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return gocql.UUID{}, false
	}
	return gocql.UUID(orderUUID), true
}

// SubmitRefund dépose une demande de remboursement pour une commande.
// Multipart : champ "reason" + 0 à 3 fichiers "images". L'en-tête
// Idempotency-Key protège contre le double envoi après timeout.
func SubmitRefund(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	reason := c.PostForm("reason")

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formulaire invalide", "details": err.Error()})
		return
	}

	var attachments []refund.Attachment
	for _, fileHeader := range form.File["images"] {
		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Erreur ouverture fichier " + fileHeader.Filename})
			return
		}
		defer f.Close()
		attachments = append(attachments, refund.Attachment{
			FileName:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Content:     f,
		})
	}

	req, err := svc.Submit(c.Request.Context(), orderID, userID, reason, attachments, c.GetHeader("Idempotency-Key"))
	if err != nil {
		utils.LogFailedRefundAction(c, "refund_submit", orderID.String(), err.Error())
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	utils.LogRefundAction(c, "refund_submit", req.ID.String(), req)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Demande de remboursement créée",
		"refund":  req,
	})
}

// DecideRefund tranche une demande en attente (admin) : accept ou reject,
// motif obligatoire en cas de rejet. Rejouer une décision renvoie l'état
// terminal existant en 409, jamais une double application.
func DecideRefund(c *gin.Context) {
	refundUUID, err := uuid.Parse(c.Param("refundId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID remboursement invalide"})
		return
	}

	var body struct {
		Action       string `json:"action" binding:"required"` // accept, reject
		RejectReason string `json:"reject_reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	req, err := svc.Decide(c.Request.Context(), gocql.UUID(refundUUID), body.Action, body.RejectReason)
	if err != nil {
		if errors.Is(err, refund.ErrConflict) {
			// Rejeu ou double action staff : audité, renvoyé avec l'état existant
			utils.LogFailedRefundAction(c, "refund_decide", refundUUID.String(), err.Error())
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "refund": req})
			return
		}
		utils.LogFailedRefundAction(c, "refund_decide", refundUUID.String(), err.Error())
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	utils.LogRefundAction(c, "refund_decide", req.ID.String(), req)
	c.JSON(http.StatusOK, gin.H{
		"message": "Décision enregistrée",
		"refund":  req,
	})
}
