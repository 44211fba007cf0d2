package refund_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novea_back_end/internal/cache"
	"novea_back_end/internal/models"
	"novea_back_end/internal/refund"
)

// --- Doubles en mémoire, sûrs en concurrence ---

type memOrders struct {
	mu     sync.Mutex
	orders map[gocql.UUID]*models.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[gocql.UUID]*models.Order)}
}

func (m *memOrders) add(order *models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

func (m *memOrders) GetByID(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: commande %s", refund.ErrNotFound, orderID)
	}
	cp := *order
	return &cp, nil
}

func (m *memOrders) SetStatus(ctx context.Context, orderID gocql.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: commande %s", refund.ErrNotFound, orderID)
	}
	order.Status = status
	return nil
}

type memLedger struct {
	mu         sync.Mutex
	byOrder    map[gocql.UUID][]models.RefundRequest
	failInsert error
}

func newMemLedger() *memLedger {
	return &memLedger{byOrder: make(map[gocql.UUID][]models.RefundRequest)}
}

func (m *memLedger) ListByOrder(ctx context.Context, orderID gocql.UUID) ([]models.RefundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RefundRequest(nil), m.byOrder[orderID]...), nil
}

func (m *memLedger) Latest(ctx context.Context, orderID gocql.UUID) (*models.RefundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := m.byOrder[orderID]
	if len(reqs) == 0 {
		return nil, nil
	}
	cp := reqs[len(reqs)-1]
	return &cp, nil
}

func (m *memLedger) RejectedCount(ctx context.Context, orderID gocql.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, req := range m.byOrder[orderID] {
		if req.Status == models.RefundStatusRejected {
			count++
		}
	}
	return count, nil
}

func (m *memLedger) HasAccepted(ctx context.Context, orderID gocql.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.byOrder[orderID] {
		if req.Status == models.RefundStatusAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) ListByUser(ctx context.Context, userID string) ([]models.RefundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RefundRequest
	for _, reqs := range m.byOrder {
		for _, req := range reqs {
			if req.UserID == userID {
				out = append(out, req)
			}
		}
	}
	return out, nil
}

func (m *memLedger) ListAll(ctx context.Context) ([]models.RefundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RefundRequest
	for _, reqs := range m.byOrder {
		out = append(out, reqs...)
	}
	return out, nil
}

func (m *memLedger) Insert(ctx context.Context, req *models.RefundRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return m.failInsert
	}
	m.byOrder[req.OrderID] = append(m.byOrder[req.OrderID], *req)
	return nil
}

func (m *memLedger) GetByID(ctx context.Context, refundID gocql.UUID) (*models.RefundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reqs := range m.byOrder {
		for _, req := range reqs {
			if req.ID == refundID {
				cp := req
				return &cp, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: demande %s", refund.ErrNotFound, refundID)
}

func (m *memLedger) UpdateDecision(ctx context.Context, updated *models.RefundRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := m.byOrder[updated.OrderID]
	for i := range reqs {
		if reqs[i].ID == updated.ID {
			reqs[i] = *updated
			return nil
		}
	}
	return fmt.Errorf("%w: demande %s", refund.ErrNotFound, updated.ID)
}

type memAttachments struct {
	mu      sync.Mutex
	stored  []string
	removed []string
}

func (m *memAttachments) Store(ctx context.Context, orderID gocql.UUID, atts []refund.Attachment) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs := make([]string, 0, len(atts))
	for i := range atts {
		refs = append(refs, fmt.Sprintf("refunds/%s/%d", orderID, i))
	}
	m.stored = append(m.stored, refs...)
	return refs, nil
}

func (m *memAttachments) Remove(ctx context.Context, refs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, refs...)
}

// --- Fixtures ---

func ptr(v int64) *int64 { return &v }

// Commande de l'exemple : total réconcilié 470 000
func newPaidOrder() *models.Order {
	return &models.Order{
		ID:     gocql.TimeUUID(),
		UserID: "user-1",
		Status: models.OrderStatusPaid,
		Items: []models.OrderItem{
			{UnitPrice: 500000, CouponPrice: ptr(450000), Quantity: 1},
		},
		ShippingFee:      30000,
		ShippingDiscount: 10000,
	}
}

func newTestService(t *testing.T) (*refund.Service, *memOrders, *memLedger, *memAttachments) {
	t.Helper()
	orders := newMemOrders()
	ledger := newMemLedger()
	atts := &memAttachments{}
	svc := refund.NewService(orders, ledger, atts, nil, nil)
	return svc, orders, ledger, atts
}

func attachments(n int) []refund.Attachment {
	out := make([]refund.Attachment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, refund.Attachment{
			FileName:    fmt.Sprintf("photo%d.jpg", i),
			ContentType: "image/jpeg",
			Size:        4,
			Content:     bytes.NewReader([]byte("jpeg")),
		})
	}
	return out
}

// --- Soumission ---

func TestSubmitCreatesPendingWithReconciledAmount(t *testing.T) {
	svc, orders, ledger, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)

	req, err := svc.Submit(context.Background(), order.ID, "user-1", "article défectueux", attachments(2), "")
	require.NoError(t, err)

	// Le montant est figé au total réconcilié, jamais fourni par le client
	assert.Equal(t, int64(470000), req.Amount)
	assert.Equal(t, models.RefundStatusPending, req.Status)
	assert.Len(t, req.EvidenceImages, 2)

	history, err := ledger.ListByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestSubmitUnknownOrder(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), gocql.TimeUUID(), "user-1", "motif", nil, "")
	assert.ErrorIs(t, err, refund.ErrNotFound)
}

func TestSubmitForeignOrderIndistinguishable(t *testing.T) {
	svc, orders, _, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)

	_, err := svc.Submit(context.Background(), order.ID, "user-2", "motif", nil, "")
	assert.ErrorIs(t, err, refund.ErrNotFound)
}

func TestSubmitWhilePending(t *testing.T) {
	svc, orders, _, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)

	_, err := svc.Submit(context.Background(), order.ID, "user-1", "premier motif", nil, "")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), order.ID, "user-1", "second motif", nil, "")
	assert.ErrorIs(t, err, refund.ErrAlreadyPending)
}

func TestSubmitPreconditionOrder(t *testing.T) {
	// Demande en attente + motif vide : la demande en attente gagne,
	// les préconditions s'évaluent dans l'ordre du cycle de vie
	svc, orders, _, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)

	_, err := svc.Submit(context.Background(), order.ID, "user-1", "premier motif", nil, "")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), order.ID, "user-1", "", nil, "")
	assert.ErrorIs(t, err, refund.ErrAlreadyPending)
}

func TestSubmitEmptyReason(t *testing.T) {
	svc, orders, _, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)

	_, err := svc.Submit(context.Background(), order.ID, "user-1", "   ", nil, "")
	assert.ErrorIs(t, err, refund.ErrValidation)
}

func TestSubmitAttachmentBound(t *testing.T) {
	// 0 à 3 pièces acceptées, 4 refusées
	for n := 0; n <= 3; n++ {
		svc, orders, _, _ := newTestService(t)
		order := newPaidOrder()
		orders.add(order)

		req, err := svc.Submit(context.Background(), order.ID, "user-1", "motif valable", attachments(n), "")
		require.NoError(t, err, "n=%d", n)
		assert.Len(t, req.EvidenceImages, n)
	}

	svc, orders, _, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)

	_, err := svc.Submit(context.Background(), order.ID, "user-1", "motif valable", attachments(4), "")
	assert.ErrorIs(t, err, refund.ErrAttachment)
}

func TestSubmitCompensatesAttachmentsOnLedgerFailure(t *testing.T) {
	svc, orders, ledger, atts := newTestService(t)
	order := newPaidOrder()
	orders.add(order)
	ledger.failInsert = errors.New("écriture refusée")

	_, err := svc.Submit(context.Background(), order.ID, "user-1", "motif", attachments(2), "")
	require.Error(t, err)

	// Les pièces déjà stockées sont supprimées : pas de demande fantôme
	assert.ElementsMatch(t, atts.stored, atts.removed)
}

// --- Décision ---

func submitOne(t *testing.T, svc *refund.Service, order *models.Order, reason string) *models.RefundRequest {
	t.Helper()
	req, err := svc.Submit(context.Background(), order.ID, "user-1", reason, nil, "")
	require.NoError(t, err)
	return req
}

func TestDecideAcceptMarksOrderRefunded(t *testing.T) {
	svc, orders, _, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)
	req := submitOne(t, svc, order, "article défectueux")

	decided, err := svc.Decide(context.Background(), req.ID, refund.DecisionAccept, "")
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusAccepted, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	stored, err := orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, stored.Status)

	// L'acceptation ferme définitivement la soumission
	_, err = svc.Submit(context.Background(), order.ID, "user-1", "encore", nil, "")
	assert.ErrorIs(t, err, refund.ErrAlreadyRefunded)
}

func TestDecideRejectRequiresReason(t *testing.T) {
	svc, orders, _, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)
	req := submitOne(t, svc, order, "article défectueux")

	_, err := svc.Decide(context.Background(), req.ID, refund.DecisionReject, "  ")
	assert.ErrorIs(t, err, refund.ErrValidation)
}

func TestDecideUnknownOutcome(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Decide(context.Background(), gocql.TimeUUID(), "approve", "")
	assert.ErrorIs(t, err, refund.ErrValidation)
}

func TestDecideUnknownRequest(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Decide(context.Background(), gocql.TimeUUID(), refund.DecisionAccept, "")
	assert.ErrorIs(t, err, refund.ErrNotFound)
}

func TestDecideReplayIsConflictNotReapplied(t *testing.T) {
	svc, orders, ledger, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)
	req := submitOne(t, svc, order, "article défectueux")

	_, err := svc.Decide(context.Background(), req.ID, refund.DecisionReject, "photo floue")
	require.NoError(t, err)

	// Rejouer la décision renvoie l'état terminal existant, sans double effet
	existing, err := svc.Decide(context.Background(), req.ID, refund.DecisionReject, "photo floue")
	assert.ErrorIs(t, err, refund.ErrConflict)
	require.NotNil(t, existing)
	assert.Equal(t, models.RefundStatusRejected, existing.Status)

	count, err := ledger.RejectedCount(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// --- Cycle de vie complet ---

func TestLifecycleRejectRejectAccept(t *testing.T) {
	svc, orders, _, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)
	ctx := context.Background()

	req1 := submitOne(t, svc, order, "article défectueux")
	_, err := svc.Decide(ctx, req1.ID, refund.DecisionReject, "photo floue")
	require.NoError(t, err)

	detail, err := svc.Status(ctx, order.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, refund.StatusRejectedRetryable, detail.Status)

	req2 := submitOne(t, svc, order, "article toujours défectueux")
	_, err = svc.Decide(ctx, req2.ID, refund.DecisionReject, "preuves insuffisantes")
	require.NoError(t, err)

	detail, err = svc.Status(ctx, order.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, refund.StatusRejectedRetryable, detail.Status)

	req3 := submitOne(t, svc, order, "troisième tentative")
	_, err = svc.Decide(ctx, req3.ID, refund.DecisionAccept, "")
	require.NoError(t, err)

	detail, err = svc.Status(ctx, order.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, refund.StatusRefunded, detail.Status)

	history, err := svc.History(ctx, order.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.RefundStatusRejected, history[0].Status)
	assert.Equal(t, models.RefundStatusRejected, history[1].Status)
	assert.Equal(t, models.RefundStatusAccepted, history[2].Status)
}

func TestThreeStrikesLock(t *testing.T) {
	svc, orders, _, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		req := submitOne(t, svc, order, fmt.Sprintf("tentative %d", i+1))
		_, err := svc.Decide(ctx, req.ID, refund.DecisionReject, "preuves insuffisantes")
		require.NoError(t, err)
	}

	// Quatrième soumission : blocage définitif, aucun déblocage possible
	_, err := svc.Submit(ctx, order.ID, "user-1", "dernière tentative", nil, "")
	assert.ErrorIs(t, err, refund.ErrLimitReached)

	detail, err := svc.Status(ctx, order.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, refund.StatusLocked, detail.Status)
}

// --- Concurrence ---

func TestConcurrentSubmitSingleOpenRequest(t *testing.T) {
	svc, orders, ledger, _ := newTestService(t)
	order := newPaidOrder()
	orders.add(order)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, order.ID, "user-1", "soumission concurrente", nil, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, refund.ErrAlreadyPending)
		}
	}
	assert.Equal(t, 1, created)

	history, err := ledger.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

// --- Idempotence client ---

func TestSubmitIdempotencyReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	orders := newMemOrders()
	ledger := newMemLedger()
	svc := refund.NewService(orders, ledger, &memAttachments{}, cache.NewRedisIdempotency(rdb), nil)

	order := newPaidOrder()
	orders.add(order)
	ctx := context.Background()

	first, err := svc.Submit(ctx, order.ID, "user-1", "article défectueux", nil, "cle-123")
	require.NoError(t, err)

	// Retry client avec la même clé : même demande, pas de doublon
	replayed, err := svc.Submit(ctx, order.ID, "user-1", "article défectueux", nil, "cle-123")
	require.NoError(t, err)
	assert.Equal(t, first.ID, replayed.ID)

	history, err := ledger.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSubmitIdempotencyReleasedOnFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	orders := newMemOrders()
	ledger := newMemLedger()
	svc := refund.NewService(orders, ledger, &memAttachments{}, cache.NewRedisIdempotency(rdb), nil)

	order := newPaidOrder()
	orders.add(order)
	ctx := context.Background()

	// Premier essai refusé (motif vide) : la clé est libérée
	_, err := svc.Submit(ctx, order.ID, "user-1", "", nil, "cle-456")
	require.ErrorIs(t, err, refund.ErrValidation)

	// Le client corrige et retente avec la même clé
	req, err := svc.Submit(ctx, order.ID, "user-1", "motif corrigé", nil, "cle-456")
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusPending, req.Status)
}
