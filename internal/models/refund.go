package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts possibles d'une demande de remboursement
const (
	RefundStatusPending  = "pending"
	RefundStatusAccepted = "accepted"
	RefundStatusRejected = "rejected"
)

// Nombre maximum d'images de pièce justificative par demande
const MaxEvidenceImages = 3

// Nombre de rejets au-delà duquel la commande est définitivement bloquée
const MaxRejections = 3

type RefundRequest struct {
	ID      gocql.UUID `json:"id"`
	OrderID gocql.UUID `json:"order_id"`
	UserID  string     `json:"user_id"`
	// Montant figé au dépôt de la demande : toujours le total réconcilié
	// de la commande, jamais fourni par le client
	Amount         int64      `json:"amount"`
	Reason         string     `json:"reason"`
	EvidenceImages []string   `json:"evidence_images,omitempty"`
	Status         string     `json:"status"`
	RejectReason   string     `json:"reject_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
}
