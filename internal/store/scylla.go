// Package store implémente l'accès ScyllaDB aux commandes et au ledger de
// remboursement (keyspace orders).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"novea_back_end/internal/config"
	"novea_back_end/internal/database"
	"novea_back_end/internal/models"
	"novea_back_end/internal/refund"
)

// ScyllaOrderStore lit les commandes et leurs lignes depuis ScyllaDB.
// Les instantanés de prix sont en unité mineure (bigint côté CQL).
type ScyllaOrderStore struct{}

func NewScyllaOrderStore() *ScyllaOrderStore {
	return &ScyllaOrderStore{}
}

func (s *ScyllaOrderStore) GetByID(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var order models.Order
	// shipping_fee nullable : absent => frais par défaut configurés
	var shippingFee *int64
	var shippingDiscount int64

	err = session.Query(`
		SELECT order_id, user_id, status, shipping_fee, shipping_discount, created_at
		FROM orders WHERE order_id = ?
	`, orderID).WithContext(ctx).Scan(
		&order.ID, &order.UserID, &order.Status, &shippingFee, &shippingDiscount, &order.CreatedAt)

	if err == gocql.ErrNotFound {
		return nil, fmt.Errorf("%w: commande %s", refund.ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lecture commande %s: %v", orderID, err)
	}

	if shippingFee != nil {
		order.ShippingFee = *shippingFee
	} else {
		order.ShippingFee = config.DefaultShippingFee()
	}
	order.ShippingDiscount = shippingDiscount

	iter := session.Query(`
		SELECT product_id, product_name, unit_price, discount_price, coupon_price, quantity
		FROM order_items WHERE order_id = ?
	`, orderID).WithContext(ctx).Iter()

	var item models.OrderItem
	for iter.Scan(&item.ProductID, &item.ProductName, &item.UnitPrice, &item.DiscountPrice, &item.CouponPrice, &item.Quantity) {
		order.Items = append(order.Items, item)
		item = models.OrderItem{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("erreur lecture lignes commande %s: %v", orderID, err)
	}

	return &order, nil
}

func (s *ScyllaOrderStore) SetStatus(ctx context.Context, orderID gocql.UUID, status string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query("UPDATE orders SET status = ? WHERE order_id = ?", status, orderID).
		WithContext(ctx).Exec()
}

// ScyllaRefundLedger persiste les demandes dans la table refunds, partitionnée
// par commande et clusterisée par date de création : ListByOrder sort
// naturellement trié, sans recomptage côté application.
type ScyllaRefundLedger struct{}

func NewScyllaRefundLedger() *ScyllaRefundLedger {
	return &ScyllaRefundLedger{}
}

const refundColumns = "refund_id, order_id, user_id, amount, reason, status, reject_reason, evidence_images, created_at, decided_at"

func scanRefund(scan func(...interface{}) error) (*models.RefundRequest, error) {
	var req models.RefundRequest
	err := scan(&req.ID, &req.OrderID, &req.UserID, &req.Amount, &req.Reason,
		&req.Status, &req.RejectReason, &req.EvidenceImages, &req.CreatedAt, &req.DecidedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (l *ScyllaRefundLedger) ListByOrder(ctx context.Context, orderID gocql.UUID) ([]models.RefundRequest, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`
		SELECT `+refundColumns+`
		FROM refunds WHERE order_id = ? ORDER BY created_at ASC
	`, orderID).WithContext(ctx).Iter()
	return drainRefunds(iter)
}

func (l *ScyllaRefundLedger) Latest(ctx context.Context, orderID gocql.UUID) (*models.RefundRequest, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	q := session.Query(`
		SELECT `+refundColumns+`
		FROM refunds WHERE order_id = ? ORDER BY created_at DESC LIMIT 1
	`, orderID).WithContext(ctx)

	req, err := scanRefund(q.Scan)
	if err == gocql.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lecture dernière demande commande %s: %v", orderID, err)
	}
	return req, nil
}

func (l *ScyllaRefundLedger) RejectedCount(ctx context.Context, orderID gocql.UUID) (int, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return 0, err
	}

	// Toujours recompté depuis les lignes : aucun compteur matérialisé
	// susceptible de dériver du ledger
	var count int
	err = session.Query(`
		SELECT COUNT(*) FROM refunds WHERE order_id = ? AND status = ? ALLOW FILTERING
	`, orderID, models.RefundStatusRejected).WithContext(ctx).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("erreur comptage rejets commande %s: %v", orderID, err)
	}
	return count, nil
}

func (l *ScyllaRefundLedger) HasAccepted(ctx context.Context, orderID gocql.UUID) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, err
	}

	var count int
	err = session.Query(`
		SELECT COUNT(*) FROM refunds WHERE order_id = ? AND status = ? ALLOW FILTERING
	`, orderID, models.RefundStatusAccepted).WithContext(ctx).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("erreur lecture acceptation commande %s: %v", orderID, err)
	}
	return count > 0, nil
}

func (l *ScyllaRefundLedger) ListByUser(ctx context.Context, userID string) ([]models.RefundRequest, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`
		SELECT `+refundColumns+`
		FROM refunds WHERE user_id = ? ALLOW FILTERING
	`, userID).WithContext(ctx).Iter()
	return drainRefunds(iter)
}

func (l *ScyllaRefundLedger) ListAll(ctx context.Context) ([]models.RefundRequest, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT ` + refundColumns + ` FROM refunds`).WithContext(ctx).Iter()
	return drainRefunds(iter)
}

func drainRefunds(iter *gocql.Iter) ([]models.RefundRequest, error) {
	var requests []models.RefundRequest
	for {
		var req models.RefundRequest
		if !iter.Scan(&req.ID, &req.OrderID, &req.UserID, &req.Amount, &req.Reason,
			&req.Status, &req.RejectReason, &req.EvidenceImages, &req.CreatedAt, &req.DecidedAt) {
			break
		}
		requests = append(requests, req)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("erreur lecture demandes: %v", err)
	}
	return requests, nil
}

func (l *ScyllaRefundLedger) Insert(ctx context.Context, req *models.RefundRequest) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	err = session.Query(`
		INSERT INTO refunds (`+refundColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.ID, req.OrderID, req.UserID, req.Amount, req.Reason, req.Status,
		req.RejectReason, req.EvidenceImages, req.CreatedAt, req.DecidedAt).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("erreur insertion demande %s: %v", req.ID, err)
	}

	// Table inverse pour retrouver la partition depuis l'id de demande
	err = session.Query(`
		INSERT INTO refunds_by_id (refund_id, order_id, created_at)
		VALUES (?, ?, ?)
	`, req.ID, req.OrderID, req.CreatedAt).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("erreur insertion index demande %s: %v", req.ID, err)
	}
	return nil
}

func (l *ScyllaRefundLedger) GetByID(ctx context.Context, refundID gocql.UUID) (*models.RefundRequest, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var orderID gocql.UUID
	var createdAt time.Time
	err = session.Query(`
		SELECT order_id, created_at FROM refunds_by_id WHERE refund_id = ?
	`, refundID).WithContext(ctx).Scan(&orderID, &createdAt)
	if err == gocql.ErrNotFound {
		return nil, fmt.Errorf("%w: demande %s", refund.ErrNotFound, refundID)
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lecture index demande %s: %v", refundID, err)
	}

	q := session.Query(`
		SELECT `+refundColumns+`
		FROM refunds WHERE order_id = ? AND refund_id = ? ALLOW FILTERING
	`, orderID, refundID).WithContext(ctx)

	req, err := scanRefund(q.Scan)
	if err == gocql.ErrNotFound {
		return nil, fmt.Errorf("%w: demande %s", refund.ErrNotFound, refundID)
	}
	if err != nil {
		return nil, fmt.Errorf("erreur lecture demande %s: %v", refundID, err)
	}
	return req, nil
}

func (l *ScyllaRefundLedger) UpdateDecision(ctx context.Context, req *models.RefundRequest) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	err = session.Query(`
		UPDATE refunds SET status = ?, reject_reason = ?, decided_at = ?
		WHERE order_id = ? AND created_at = ? AND refund_id = ?
	`, req.Status, req.RejectReason, req.DecidedAt, req.OrderID, req.CreatedAt, req.ID).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("erreur mise à jour demande %s: %v", req.ID, err)
	}
	return nil
}
