package application_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"rifei/application"
	"rifei/config"
	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/events"
	"rifei/domain/interfaces"
	"rifei/infrastructure"
	"rifei/infrastructure/mercadopago"
	"rifei/repository/testutil"

	"github.com/stretchr/testify/require"
)

// fakeGateway stands in for Mercado Pago: checkouts always open and payments
// are whatever the test settled them to
type fakeGateway struct {
	mu       sync.Mutex
	payments map[string]*entities.GatewayPayment
	refunds  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: make(map[string]*entities.GatewayPayment)}
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, req entities.CheckoutRequest) (*entities.CheckoutSession, error) {
	ref := req.Payment.ExternalReference()
	return &entities.CheckoutSession{
		PreferenceID: "pref-" + ref,
		CheckoutURL:  "https://checkout.test/" + ref,
	}, nil
}

func (g *fakeGateway) GetPayment(ctx context.Context, externalPaymentID string) (*entities.GatewayPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	payment, ok := g.payments[externalPaymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", externalPaymentID, domain.ErrUnknownReference)
	}
	copied := *payment
	return &copied, nil
}

func (g *fakeGateway) Refund(ctx context.Context, externalPaymentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.refunds = append(g.refunds, externalPaymentID)
	if payment, ok := g.payments[externalPaymentID]; ok {
		payment.Status = entities.GatewayStatusRefunded
	}
	return nil
}

// settle records the gateway's view of a local payment and returns its gateway id
func (g *fakeGateway) settle(payment *entities.Payment, status entities.GatewayStatus) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	externalID := strconv.FormatInt(900000+payment.ID, 10)
	g.payments[externalID] = &entities.GatewayPayment{
		ID:                externalID,
		Status:            status,
		ExternalReference: payment.ExternalReference(),
		PaymentTypeID:     "bank_transfer",
		TransactionAmount: payment.Amount,
	}
	return externalID
}

// eventRecorder collects committed events
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func newEventRecorder(factory *infrastructure.UnitOfWorkFactory) *eventRecorder {
	r := &eventRecorder{}
	for _, eventType := range events.AllEventTypes() {
		factory.RegisterLocalHandler(eventType, func(ctx context.Context, event events.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, event)
			return nil
		})
	}
	return r
}

func (r *eventRecorder) count(eventType events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, event := range r.events {
		if event.Type() == eventType {
			n++
		}
	}
	return n
}

// recordingAnnouncer captures draw announcements
type recordingAnnouncer struct {
	mu      sync.Mutex
	results []*interfaces.RaffleDrawResult
}

func (a *recordingAnnouncer) AnnounceDraw(ctx context.Context, result *interfaces.RaffleDrawResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result)
	return nil
}

type testEnv struct {
	ctx          context.Context
	testDB       *testutil.TestDatabase
	clock        *clock.Fixed
	config       *config.Config
	factory      *infrastructure.UnitOfWorkFactory
	gateway      *fakeGateway
	verifier     *mercadopago.SignatureVerifier
	events       *eventRecorder
	announcer    *recordingAnnouncer
	reservations *application.ReservationHandler
	checkout     *application.CheckoutHandler
	webhooks     *application.WebhookHandler
	payments     *application.PaymentHandler
	raffles      *application.RaffleHandler
	expiry       *application.ReservationExpiryWorker
	draws        *application.RaffleDrawWorker
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	cfg := config.NewTestConfig()
	clk := clock.NewFixed(time.Now())

	publisher := infrastructure.NewNATSEventPublisher(nil, infrastructure.NewEventSubjectMapper())
	factory := infrastructure.NewUnitOfWorkFactory(testDB.DB, publisher)
	gateway := newFakeGateway()
	verifier := mercadopago.NewSignatureVerifier(cfg.MercadoPagoWebhookSecret)
	announcer := &recordingAnnouncer{}

	return &testEnv{
		ctx:          context.Background(),
		testDB:       testDB,
		clock:        clk,
		config:       cfg,
		factory:      factory,
		gateway:      gateway,
		verifier:     verifier,
		events:       newEventRecorder(factory),
		announcer:    announcer,
		reservations: application.NewReservationHandler(factory, clk, cfg),
		checkout:     application.NewCheckoutHandler(factory, gateway, clk, cfg),
		webhooks:     application.NewWebhookHandler(factory, gateway, verifier, application.NewLocalLocker(), clk, cfg),
		payments:     application.NewPaymentHandler(factory, gateway, clk, cfg),
		raffles:      application.NewRaffleHandler(factory, announcer, clk, cfg),
		expiry:       application.NewReservationExpiryWorker(factory, clk, cfg),
		draws:        application.NewRaffleDrawWorker(factory, announcer, clk, cfg),
	}
}

func buyer(id int64) application.Actor {
	return application.Actor{UserID: id, Role: application.RoleUser}
}

func admin() application.Actor {
	return application.Actor{UserID: 1000, Role: application.RoleAdmin}
}

// deliver sends a signed payment notification for externalID
func (e *testEnv) deliver(externalID, requestID string) (*application.WebhookResult, error) {
	return e.webhooks.HandleDelivery(e.ctx, application.WebhookDelivery{
		Provider:    "mercadopago",
		DeliveryKey: requestID,
		Type:        entities.GatewayEventTypePayment,
		Action:      "payment.updated",
		DataID:      externalID,
		Payload:     []byte(`{"type":"payment","data":{"id":"` + externalID + `"}}`),
		Signature:   e.verifier.Sign(externalID, requestID, "1700000000"),
		RequestID:   requestID,
	})
}

// buy reserves numbers for user, opens a checkout and has the gateway approve it
func (e *testEnv) buy(t *testing.T, raffleID, userID int64, numbers []int64) *entities.Payment {
	t.Helper()

	reservation, err := e.reservations.CreateReservation(e.ctx, buyer(userID), raffleID, numbers)
	require.NoError(t, err)

	payment, err := e.checkout.Checkout(e.ctx, buyer(userID), application.CheckoutParams{
		ReservationID: reservation.ID,
		Method:        entities.PaymentMethodCreditCard,
	})
	require.NoError(t, err)

	externalID := e.gateway.settle(payment, entities.GatewayStatusApproved)
	result, err := e.deliver(externalID, "approve-"+externalID)
	require.NoError(t, err)
	require.Equal(t, string(entities.OutcomeApplied), result.Outcome)

	approved, err := e.payments.GetPayment(e.ctx, buyer(userID), payment.ID)
	require.NoError(t, err)
	require.Equal(t, entities.PaymentStatusApproved, approved.Status)
	return approved
}

// assertConservation checks sold_count against tickets and availability against holds
func (e *testEnv) assertConservation(t *testing.T, raffleID int64) {
	t.Helper()

	raffle, err := e.raffles.GetRaffle(e.ctx, raffleID)
	require.NoError(t, err)

	stats, err := e.raffles.GetRaffleStats(e.ctx, raffleID)
	require.NoError(t, err)

	available, err := e.reservations.GetAvailableNumbers(e.ctx, raffleID)
	require.NoError(t, err)

	var ticketCount int
	uow := e.factory.Create()
	require.NoError(t, uow.Begin(e.ctx))
	tickets, err := uow.TicketRepository().GetByRaffle(e.ctx, raffleID)
	require.NoError(t, err)
	ticketCount = len(tickets)
	require.NoError(t, uow.Rollback())

	require.Equal(t, raffle.SoldCount, int64(ticketCount), "sold_count must equal ticket count")
	require.Equal(t, raffle.TotalNumbers-raffle.SoldCount-stats.ReservedNumbers, int64(len(available)),
		"available must equal total - sold - actively reserved")
}
