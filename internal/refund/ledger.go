package refund

import (
	"context"

	"github.com/gocql/gocql"

	"novea_back_end/internal/models"
)

// Ledger est l'historique ordonné des demandes de remboursement.
// Ses quatre primitives de lecture sont le SEUL moyen autorisé de dériver
// l'état de remboursement d'une commande : personne ne recompte les rejets
// à la main depuis des données partielles.
type Ledger interface {
	// Toutes les demandes de la commande, par date de création croissante
	ListByOrder(ctx context.Context, orderID gocql.UUID) ([]models.RefundRequest, error)
	// La demande la plus récente, nil si aucune
	Latest(ctx context.Context, orderID gocql.UUID) (*models.RefundRequest, error)
	// Nombre de demandes rejetées pour la commande
	RejectedCount(ctx context.Context, orderID gocql.UUID) (int, error)
	// Vrai si une demande a été acceptée pour la commande
	HasAccepted(ctx context.Context, orderID gocql.UUID) (bool, error)

	// Vues transverses pour l'espace client et l'admin
	ListByUser(ctx context.Context, userID string) ([]models.RefundRequest, error)
	ListAll(ctx context.Context) ([]models.RefundRequest, error)

	// Écritures réservées à la machine à états
	Insert(ctx context.Context, req *models.RefundRequest) error
	GetByID(ctx context.Context, refundID gocql.UUID) (*models.RefundRequest, error)
	UpdateDecision(ctx context.Context, req *models.RefundRequest) error
}

// OrderStore expose les commandes au cœur de remboursement. Les instantanés
// de prix sont immuables ; seul le statut est mutable, et uniquement vers
// "refunded" via l'acceptation d'une demande.
type OrderStore interface {
	GetByID(ctx context.Context, orderID gocql.UUID) (*models.Order, error)
	SetStatus(ctx context.Context, orderID gocql.UUID, status string) error
}
