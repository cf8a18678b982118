package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventType, status string, meta map[string]string) []byte {
	metaJSON := "{"
	first := true
	for k, v := range meta {
		if !first {
			metaJSON += ","
		}
		metaJSON += fmt.Sprintf("%q:%q", k, v)
		first = false
	}
	metaJSON += "}"

	return []byte(fmt.Sprintf(`{
  "id": "evt_test_1",
  "object": "event",
  "api_version": "2023-10-16",
  "type": %q,
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "payment_status": %q,
      "amount_total": 2200,
      "metadata": %s
    }
  }
}`, eventType, status, metaJSON))
}

func TestParseStripeWebhook_CheckoutCompleted(t *testing.T) {
	user, bookingID := uuid.New(), uuid.New()
	meta := Metadata{Kind: KindBooking, UserID: user, BookingID: bookingID, AmountCents: 2200}.Map()
	payload := eventPayload(eventCheckoutCompleted, "paid", meta)

	sess, err := parseStripeWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()), testWebhookSecret)
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, "cs_test_1", sess.ID)
	assert.True(t, sess.Paid)
	assert.Equal(t, int64(2200), sess.AmountCents)

	parsed, err := ParseMetadata(sess.Metadata)
	require.NoError(t, err)
	assert.Equal(t, bookingID, parsed.BookingID)
	assert.Equal(t, user, parsed.UserID)
}

func TestParseStripeWebhook_BadSignature(t *testing.T) {
	payload := eventPayload(eventCheckoutCompleted, "paid", nil)

	_, err := parseStripeWebhook(payload, signPayload(payload, "whsec_other", time.Now()), testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = parseStripeWebhook(payload, "", testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseStripeWebhook_StaleTimestamp(t *testing.T) {
	payload := eventPayload(eventCheckoutCompleted, "paid", nil)

	_, err := parseStripeWebhook(payload, signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour)), testWebhookSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseStripeWebhook_AsyncPaymentSucceeded(t *testing.T) {
	meta := Metadata{Kind: KindTopUp, UserID: uuid.New(), AmountCents: 2200}.Map()
	payload := eventPayload(eventAsyncPaymentSucceeded, "paid", meta)

	sess, err := parseStripeWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()), testWebhookSecret)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.True(t, sess.Paid)
}

func TestParseStripeWebhook_CompletedButUnpaid(t *testing.T) {
	meta := Metadata{Kind: KindTopUp, UserID: uuid.New(), AmountCents: 2200}.Map()
	payload := eventPayload(eventCheckoutCompleted, "unpaid", meta)

	sess, err := parseStripeWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()), testWebhookSecret)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.False(t, sess.Paid)
}

func TestParseStripeWebhook_IgnoresOtherEvents(t *testing.T) {
	payload := eventPayload("checkout.session.expired", "unpaid", nil)

	sess, err := parseStripeWebhook(payload, signPayload(payload, testWebhookSecret, time.Now()), testWebhookSecret)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestMetadataRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		in      map[string]string
		wantErr bool
	}{
		{"topup", Metadata{Kind: KindTopUp, UserID: uuid.New(), AmountCents: 500}.Map(), false},
		{"booking", Metadata{Kind: KindBooking, UserID: uuid.New(), BookingID: uuid.New(), AmountCents: 2200}.Map(), false},
		{"unknown kind", map[string]string{"kind": "gift", "user_id": uuid.NewString(), "amount_cents": "1"}, true},
		{"booking without id", map[string]string{"kind": KindBooking, "user_id": uuid.NewString(), "amount_cents": "1"}, true},
		{"bad amount", map[string]string{"kind": KindTopUp, "user_id": uuid.NewString(), "amount_cents": "ten"}, true},
		{"empty", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetadata(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
