package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"spotshare/internal/apperror"
	"spotshare/internal/booking"
	"spotshare/internal/clock"
	"spotshare/internal/events"
	"spotshare/internal/logger"
	"spotshare/internal/metrics"
	"spotshare/internal/wallet"
)

// Confirmation sources.
const (
	SourceWebhook = "webhook"
	SourceVerify  = "verify"
)

var (
	ErrNotPaid          = apperror.New(apperror.KindInvalidState, "payment has not been completed")
	ErrSessionNotOwned  = apperror.New(apperror.KindForbidden, "checkout session belongs to another user")
	ErrBookingNotPriced = apperror.Validation("booking has no price to pay")
)

// Crediter adds gateway money to a wallet once per session.
type Crediter interface {
	Credit(ctx context.Context, key string, to uuid.UUID, amount int64, txType string) (wallet.Outcome, error)
}

// Bookings is the part of the booking service confirmations drive.
type Bookings interface {
	Get(ctx context.Context, id uuid.UUID) (*booking.BookingRequest, error)
	Accept(ctx context.Context, actor, id uuid.UUID) (*booking.AcceptResponse, error)
}

type Limits struct {
	MinTopUpCents int64
	MaxTopUpCents int64
}

type Result struct {
	SessionID        string     `json:"session_id"`
	Kind             string     `json:"kind"`
	AmountCents      int64      `json:"amount_cents"`
	AlreadyProcessed bool       `json:"already_processed"`
	BookingID        *uuid.UUID `json:"booking_id,omitempty"`
	BookingAccepted  bool       `json:"booking_accepted"`
}

type Service struct {
	gateway   Gateway
	ledger    Crediter
	bookings  Bookings
	publisher events.Publisher
	clock     clock.Clock
	limits    Limits
}

func NewService(gateway Gateway, ledger Crediter, bookings Bookings, publisher events.Publisher, clk clock.Clock, limits Limits) *Service {
	return &Service{
		gateway:   gateway,
		ledger:    ledger,
		bookings:  bookings,
		publisher: publisher,
		clock:     clk,
		limits:    limits,
	}
}

func (s *Service) CheckoutTopUp(ctx context.Context, user uuid.UUID, amount int64) (*Session, error) {
	if amount < s.limits.MinTopUpCents || amount > s.limits.MaxTopUpCents {
		return nil, apperror.Validation(fmt.Sprintf("amount_cents must be between %d and %d",
			s.limits.MinTopUpCents, s.limits.MaxTopUpCents))
	}

	sess, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		Description: "Wallet top-up",
		Metadata:    Metadata{Kind: KindTopUp, UserID: user, AmountCents: amount},
	})
	if err != nil {
		return nil, err
	}
	logger.Info("top-up checkout created", "user_id", user, "session_id", sess.ID, "amount_cents", amount)
	return sess, nil
}

// CheckoutBooking charges the requester the full price of a pending booking.
func (s *Service) CheckoutBooking(ctx context.Context, user, bookingID uuid.UUID) (*Session, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.RequesterID != user {
		return nil, apperror.New(apperror.KindForbidden, "only the requester can pay for this booking")
	}
	if b.Status != booking.StatusPending {
		return nil, booking.ErrNotPending
	}
	q, ok := b.Quote()
	if !ok {
		return nil, ErrBookingNotPriced
	}

	sess, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		Description: "Parking booking",
		Metadata:    Metadata{Kind: KindBooking, UserID: user, BookingID: bookingID, AmountCents: q.TotalCents()},
	})
	if err != nil {
		return nil, err
	}
	logger.Info("booking checkout created", "booking_id", bookingID, "session_id", sess.ID, "amount_cents", q.TotalCents())
	return sess, nil
}

// HandleWebhook verifies and applies a gateway callback. Events other than a
// paid checkout yield a nil result, so the gateway stops redelivering them.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*Result, error) {
	sess, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		metrics.RecordPaymentConfirmation(SourceWebhook, "rejected")
		if errors.Is(err, ErrInvalidSignature) {
			return nil, apperror.Wrap(apperror.KindValidation, "invalid webhook signature", err)
		}
		return nil, apperror.Wrap(apperror.KindValidation, "invalid webhook payload", err)
	}
	if sess == nil {
		return nil, nil
	}
	if !sess.Paid {
		metrics.RecordPaymentConfirmation(SourceWebhook, "unpaid")
		logger.Info("checkout completed without payment, awaiting async result", "session_id", sess.ID)
		return nil, nil
	}
	return s.Confirm(ctx, sess, SourceWebhook)
}

// Verify is the polling fallback for clients that return from checkout before
// the webhook arrives.
func (s *Service) Verify(ctx context.Context, user uuid.UUID, sessionID string) (*Result, error) {
	if sessionID == "" {
		return nil, apperror.Validation("session_id is required")
	}
	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	meta, err := ParseMetadata(sess.Metadata)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, "unrecognised checkout session", err)
	}
	if meta.UserID != user {
		return nil, ErrSessionNotOwned
	}
	return s.Confirm(ctx, sess, SourceVerify)
}

// Confirm credits a paid session to its user exactly once. A booking checkout
// then accepts the booking as the system actor; the booking settlement key
// keeps the debit single whichever of owner or gateway accepts first.
func (s *Service) Confirm(ctx context.Context, sess *Session, source string) (*Result, error) {
	if !sess.Paid {
		metrics.RecordPaymentConfirmation(source, "unpaid")
		return nil, ErrNotPaid
	}
	meta, err := ParseMetadata(sess.Metadata)
	if err != nil {
		metrics.RecordPaymentConfirmation(source, "rejected")
		return nil, apperror.Wrap(apperror.KindValidation, "unrecognised checkout session", err)
	}

	amount := sess.AmountCents
	if amount <= 0 {
		amount = meta.AmountCents
	}
	txType := wallet.TxTopUp
	if meta.Kind == KindBooking {
		txType = wallet.TxGatewayPayment
	}

	outcome, err := s.ledger.Credit(ctx, sess.ID, meta.UserID, amount, txType)
	if err != nil {
		metrics.RecordPaymentConfirmation(source, "error")
		return nil, err
	}

	res := &Result{
		SessionID:        sess.ID,
		Kind:             meta.Kind,
		AmountCents:      amount,
		AlreadyProcessed: outcome == wallet.OutcomeAlreadySettled,
	}
	metrics.RecordPaymentConfirmation(source, string(outcome))

	if outcome == wallet.OutcomeOK {
		events.Emit(ctx, s.publisher, events.New(events.TypeWalletCredited, events.WalletCredited{
			UserID:      meta.UserID,
			AmountCents: amount,
			Key:         sess.ID,
		}, s.clock.Now()))
	}

	if meta.Kind == KindBooking {
		id := meta.BookingID
		res.BookingID = &id
		res.BookingAccepted = s.acceptPaidBooking(ctx, id)
	}
	return res, nil
}

func (s *Service) acceptPaidBooking(ctx context.Context, id uuid.UUID) bool {
	_, err := s.bookings.Accept(ctx, booking.SystemActor, id)
	switch {
	case err == nil:
		return true
	case errors.Is(err, booking.ErrNotPending):
		b, getErr := s.bookings.Get(ctx, id)
		return getErr == nil && b.Status == booking.StatusAccepted
	default:
		// the credit stays in the wallet and the owner can still accept later
		logger.Warn("paid booking could not be accepted", "booking_id", id, "error", err)
		return false
	}
}
