package refund

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"novea_back_end/internal/models"
)

func TestProjectPrecedence(t *testing.T) {
	pending := &models.RefundRequest{Status: models.RefundStatusPending}
	rejected := &models.RefundRequest{Status: models.RefundStatusRejected}
	accepted := &models.RefundRequest{Status: models.RefundStatusAccepted}

	tests := []struct {
		name     string
		order    models.Order
		latest   *models.RefundRequest
		rejected int
		accepted bool
		want     HistoryStatus
	}{
		{"acceptation gagne sur tout", models.Order{Status: models.OrderStatusRefunded}, accepted, 3, true, StatusRefunded},
		{"statut commande refunded suffit", models.Order{Status: models.OrderStatusRefunded}, nil, 0, false, StatusRefunded},
		{"demande en attente", models.Order{Status: models.OrderStatusPaid}, pending, 2, false, StatusPending},
		{"attente gagne sur le blocage", models.Order{Status: models.OrderStatusPaid}, pending, 3, false, StatusPending},
		{"trois rejets bloquent", models.Order{Status: models.OrderStatusPaid}, rejected, 3, false, StatusLocked},
		{"rejet encore rejouable", models.Order{Status: models.OrderStatusPaid}, rejected, 2, false, StatusRejectedRetryable},
		{"aucune demande, commande éligible", models.Order{Status: models.OrderStatusPaid}, nil, 0, false, StatusAvailable},
		{"livrée sans demande", models.Order{Status: models.OrderStatusDelivered}, nil, 0, false, StatusAvailable},
		{"annulée sans demande", models.Order{Status: models.OrderStatusCancelled}, nil, 0, false, StatusNotApplicable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(&tt.order, tt.latest, tt.rejected, tt.accepted)
			assert.Equal(t, tt.want, got)
		})
	}
}
