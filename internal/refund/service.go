package refund

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"novea_back_end/internal/models"
	"novea_back_end/internal/pricing"
)

// Attachment est une pièce justificative reçue du client, pas encore stockée
type Attachment struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// AttachmentStore persiste les pièces justificatives et rend des références
// stables. Remove sert de compensation si l'écriture du ledger échoue : une
// demande sans ses pièces ne doit jamais être observable.
type AttachmentStore interface {
	Store(ctx context.Context, orderID gocql.UUID, attachments []Attachment) ([]string, error)
	Remove(ctx context.Context, refs []string)
}

// IdempotencyStore protège Submit contre les doubles envois client (retry
// après timeout). Reserve pose la clé ; fresh=false signifie qu'un appel
// identique est déjà passé (existingID renseigné) ou encore en vol.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (existingID string, fresh bool, err error)
	Fulfill(ctx context.Context, key, requestID string) error
	Release(ctx context.Context, key string)
}

// Indexer pousse les demandes vers l'index de recherche admin.
// Meilleur effort : une erreur d'indexation ne fait jamais échouer l'opération.
type Indexer interface {
	IndexRefund(req models.RefundRequest)
}

// Service est la machine à états du remboursement. C'est le seul composant
// qui écrit dans le ledger et le seul autorisé à passer une commande en
// statut "refunded".
type Service struct {
	orders      OrderStore
	ledger      Ledger
	attachments AttachmentStore
	idempotency IdempotencyStore
	indexer     Indexer

	// Un mutex par commande : Submit et Decide sur une même commande
	// s'excluent mutuellement, les commandes distinctes restent parallèles
	locks sync.Map
}

func NewService(orders OrderStore, ledger Ledger, attachments AttachmentStore, idempotency IdempotencyStore, indexer Indexer) *Service {
	return &Service{
		orders:      orders,
		ledger:      ledger,
		attachments: attachments,
		idempotency: idempotency,
		indexer:     indexer,
	}
}

func (s *Service) lockOrder(orderID gocql.UUID) func() {
	v, _ := s.locks.LoadOrStore(orderID.String(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// getOwnedOrder charge une commande et vérifie qu'elle appartient bien à
// l'appelant. userID vide = appel admin, pas de contrôle de propriété.
// Une commande d'autrui est indistinguable d'une commande inexistante.
func (s *Service) getOwnedOrder(ctx context.Context, orderID gocql.UUID, userID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && order.UserID != userID {
		return nil, fmt.Errorf("%w: commande %s", ErrNotFound, orderID)
	}
	return order, nil
}

// Summary recalcule le détail de prix d'une commande depuis ses instantanés
func (s *Service) Summary(ctx context.Context, orderID gocql.UUID, userID string) (pricing.Summary, error) {
	order, err := s.getOwnedOrder(ctx, orderID, userID)
	if err != nil {
		return pricing.Summary{}, err
	}
	return pricing.Summarize(*order), nil
}

// Submit dépose une demande de remboursement pour une commande.
// Les préconditions sont vérifiées dans cet ordre, premier échec gagnant :
// commande existante, non remboursée, aucune demande en attente, moins de
// trois rejets, motif non vide, au plus trois pièces justificatives.
// Le montant est figé au total réconcilié de la commande à cet instant.
func (s *Service) Submit(ctx context.Context, orderID gocql.UUID, userID, reason string, attachments []Attachment, idempotencyKey string) (*models.RefundRequest, error) {
	// Rejeu client : si la clé a déjà produit une demande, on la renvoie
	// telle quelle au lieu d'en créer une seconde
	if idempotencyKey != "" && s.idempotency != nil {
		existingID, fresh, err := s.idempotency.Reserve(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if !fresh {
			if existingID == "" {
				return nil, fmt.Errorf("%w: soumission identique en cours", ErrConflict)
			}
			requestID, err := gocql.ParseUUID(existingID)
			if err != nil {
				return nil, fmt.Errorf("clé d'idempotence corrompue: %v", err)
			}
			log.Printf("🔁 Soumission rejouée (clé %s), demande existante %s renvoyée", idempotencyKey, existingID)
			return s.ledger.GetByID(ctx, requestID)
		}
	}

	unlock := s.lockOrder(orderID)
	defer unlock()

	req, err := s.submitLocked(ctx, orderID, userID, reason, attachments)
	if err != nil {
		if idempotencyKey != "" && s.idempotency != nil {
			s.idempotency.Release(ctx, idempotencyKey)
		}
		return nil, err
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.Fulfill(ctx, idempotencyKey, req.ID.String()); err != nil {
			log.Printf("⚠️ Erreur enregistrement clé d'idempotence %s: %v", idempotencyKey, err)
		}
	}
	if s.indexer != nil {
		s.indexer.IndexRefund(*req)
	}

	log.Printf("💰 Demande de remboursement créée: %s pour commande %s (montant %d)", req.ID, orderID, req.Amount)
	return req, nil
}

func (s *Service) submitLocked(ctx context.Context, orderID gocql.UUID, userID, reason string, attachments []Attachment) (*models.RefundRequest, error) {
	order, err := s.getOwnedOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusRefunded {
		return nil, fmt.Errorf("%w: commande %s", ErrAlreadyRefunded, orderID)
	}

	latest, err := s.ledger.Latest(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.Status == models.RefundStatusPending {
		return nil, fmt.Errorf("%w: commande %s", ErrAlreadyPending, orderID)
	}

	rejected, err := s.ledger.RejectedCount(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if rejected >= models.MaxRejections {
		return nil, fmt.Errorf("%w: %d rejets pour la commande %s", ErrLimitReached, rejected, orderID)
	}

	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: motif de remboursement requis", ErrValidation)
	}

	if len(attachments) > models.MaxEvidenceImages {
		return nil, fmt.Errorf("%w: %d images reçues, maximum %d", ErrAttachment, len(attachments), models.MaxEvidenceImages)
	}

	// Pièces d'abord, ledger ensuite : si l'insertion échoue on supprime
	// les objets déjà stockés pour que la soumission reste atomique vue
	// du client
	var refs []string
	if len(attachments) > 0 {
		if s.attachments == nil {
			return nil, fmt.Errorf("%w: stockage des pièces indisponible", ErrAttachment)
		}
		refs, err = s.attachments.Store(ctx, orderID, attachments)
		if err != nil {
			return nil, err
		}
	}

	req := &models.RefundRequest{
		ID:             gocql.TimeUUID(),
		OrderID:        orderID,
		UserID:         order.UserID,
		Amount:         pricing.Total(*order),
		Reason:         strings.TrimSpace(reason),
		EvidenceImages: refs,
		Status:         models.RefundStatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.ledger.Insert(ctx, req); err != nil {
		if len(refs) > 0 {
			s.attachments.Remove(ctx, refs)
		}
		return nil, err
	}
	return req, nil
}

// Actions de décision admin
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// Decide tranche une demande en attente. Une demande déjà tranchée renvoie
// ErrConflict avec son état terminal : rejouer une décision ne la
// réapplique jamais. L'acceptation passe la commande en "refunded", ce qui
// ferme définitivement toute soumission future.
func (s *Service) Decide(ctx context.Context, requestID gocql.UUID, outcome, rejectReason string) (*models.RefundRequest, error) {
	if outcome != DecisionAccept && outcome != DecisionReject {
		return nil, fmt.Errorf("%w: action %q inconnue (accept ou reject)", ErrValidation, outcome)
	}
	if outcome == DecisionReject && strings.TrimSpace(rejectReason) == "" {
		return nil, fmt.Errorf("%w: motif de rejet requis", ErrValidation)
	}

	req, err := s.ledger.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockOrder(req.OrderID)
	defer unlock()

	// Relecture sous verrou : une décision concurrente a pu passer entre
	// la première lecture et la prise du verrou
	req, err = s.ledger.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RefundStatusPending {
		log.Printf("⚠️ Décision rejouée sur la demande %s (déjà %s) — audit", requestID, req.Status)
		return req, fmt.Errorf("%w: demande %s déjà %s", ErrConflict, requestID, req.Status)
	}

	now := time.Now().UTC()
	req.DecidedAt = &now

	switch outcome {
	case DecisionAccept:
		req.Status = models.RefundStatusAccepted
	case DecisionReject:
		req.Status = models.RefundStatusRejected
		req.RejectReason = strings.TrimSpace(rejectReason)
	}

	if err := s.ledger.UpdateDecision(ctx, req); err != nil {
		return nil, err
	}

	if req.Status == models.RefundStatusAccepted {
		if err := s.orders.SetStatus(ctx, req.OrderID, models.OrderStatusRefunded); err != nil {
			// Le ledger fait foi : l'invariant sera rétabli à la
			// prochaine écriture, mais on trace l'incohérence
			log.Printf("❌ Erreur passage commande %s en refunded: %v", req.OrderID, err)
			return nil, err
		}
		log.Printf("✅ Remboursement accepté: %s (commande %s, montant %d)", requestID, req.OrderID, req.Amount)
	} else {
		log.Printf("❌ Remboursement rejeté: %s (%s)", requestID, req.RejectReason)
	}

	if s.indexer != nil {
		s.indexer.IndexRefund(*req)
	}
	return req, nil
}

// StatusDetail associe le statut projeté et la dernière demande en date
type StatusDetail struct {
	Status HistoryStatus         `json:"status"`
	Latest *models.RefundRequest `json:"latest,omitempty"`
}

// Status projette commande + ledger en un statut unique de présentation
func (s *Service) Status(ctx context.Context, orderID gocql.UUID, userID string) (StatusDetail, error) {
	order, err := s.getOwnedOrder(ctx, orderID, userID)
	if err != nil {
		return StatusDetail{}, err
	}

	latest, err := s.ledger.Latest(ctx, orderID)
	if err != nil {
		return StatusDetail{}, err
	}
	rejected, err := s.ledger.RejectedCount(ctx, orderID)
	if err != nil {
		return StatusDetail{}, err
	}
	accepted, err := s.ledger.HasAccepted(ctx, orderID)
	if err != nil {
		return StatusDetail{}, err
	}

	return StatusDetail{
		Status: Project(order, latest, rejected, accepted),
		Latest: latest,
	}, nil
}

// History retourne toutes les demandes de la commande, de la plus ancienne
// à la plus récente
func (s *Service) History(ctx context.Context, orderID gocql.UUID, userID string) ([]models.RefundRequest, error) {
	if _, err := s.getOwnedOrder(ctx, orderID, userID); err != nil {
		return nil, err
	}
	return s.ledger.ListByOrder(ctx, orderID)
}

// MyRefunds retourne toutes les demandes de l'utilisateur, toutes commandes
// confondues
func (s *Service) MyRefunds(ctx context.Context, userID string) ([]models.RefundRequest, error) {
	return s.ledger.ListByUser(ctx, userID)
}

// AllRefunds retourne toutes les demandes (vue admin)
func (s *Service) AllRefunds(ctx context.Context) ([]models.RefundRequest, error) {
	return s.ledger.ListAll(ctx)
}
