package refund

import "novea_back_end/internal/models"

// HistoryStatus est l'unique valeur sur laquelle les couches de présentation
// branchent : jamais sur l'historique brut des demandes.
type HistoryStatus string

const (
	// Une demande acceptée existe, la commande est remboursée
	StatusRefunded HistoryStatus = "REFUNDED"
	// Une demande est en attente de décision
	StatusPending HistoryStatus = "REFUND_PENDING"
	// Trois rejets cumulés : plus aucune demande possible
	StatusLocked HistoryStatus = "REFUND_LOCKED"
	// Dernière demande rejetée mais une nouvelle soumission reste possible
	StatusRejectedRetryable HistoryStatus = "REFUND_REJECTED_RETRYABLE"
	// Aucune demande déposée, commande éligible
	StatusAvailable HistoryStatus = "REFUND_AVAILABLE"
	// La commande n'admet pas de remboursement (ex. annulée avant paiement)
	StatusNotApplicable HistoryStatus = "NOT_APPLICABLE"
)

// Project réduit commande + ledger à un seul statut de présentation.
// Les règles s'évaluent dans cet ordre, première correspondance gagnante.
func Project(order *models.Order, latest *models.RefundRequest, rejectedCount int, hasAccepted bool) HistoryStatus {
	switch {
	case hasAccepted || order.Status == models.OrderStatusRefunded:
		return StatusRefunded
	case latest != nil && latest.Status == models.RefundStatusPending:
		return StatusPending
	case rejectedCount >= models.MaxRejections:
		return StatusLocked
	case latest != nil && latest.Status == models.RefundStatusRejected:
		return StatusRejectedRetryable
	case latest == nil && order.Status != models.OrderStatusCancelled:
		return StatusAvailable
	default:
		return StatusNotApplicable
	}
}
