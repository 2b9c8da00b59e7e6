package stripewebhooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripeapi "github.com/stripe/stripe-go/v75"

	"mailforge/internal/domain/billing"
	"mailforge/internal/domain/plans"
	"mailforge/internal/domain/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func strp(s string) *string { return &s }

type fakeUsers struct {
	users   map[uint]users.User
	updates map[uint]map[string]any
}

func newFakeUsers(list ...users.User) *fakeUsers {
	f := &fakeUsers{users: map[uint]users.User{}, updates: map[uint]map[string]any{}}
	for _, u := range list {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) FindByID(_ context.Context, id uint) (users.User, error) {
	u, ok := f.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindBySubscriptionID(_ context.Context, subID string) (users.User, error) {
	for _, u := range f.users {
		if u.SubscriptionID != nil && *u.SubscriptionID == subID {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (f *fakeUsers) Update(_ context.Context, id uint, updates map[string]any) error {
	f.updates[id] = updates
	return nil
}

type fakePlans map[string]plans.Plan

func (f fakePlans) FindByPriceID(_ context.Context, priceID string) (plans.Plan, error) {
	if p, ok := f[priceID]; ok {
		return p, nil
	}
	return plans.Plan{}, plans.ErrNotFound
}

type fakePayments struct{ recorded []billing.Payment }

func (f *fakePayments) Record(_ context.Context, p *billing.Payment) error {
	f.recorded = append(f.recorded, *p)
	return nil
}

type fakeGateway struct {
	event    stripeapi.Event
	eventErr error
	session  *stripeapi.CheckoutSession
	sub      *stripeapi.Subscription
	canceled []string
}

func (g *fakeGateway) CreateCustomer(*stripeapi.CustomerParams) (string, error) { return "", nil }
func (g *fakeGateway) CreateCheckoutSession(*stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	return nil, nil
}
func (g *fakeGateway) CreatePortalSession(string, string) (string, error) { return "", nil }
func (g *fakeGateway) GetCheckoutSession(string) (*stripeapi.CheckoutSession, error) {
	return g.session, nil
}
func (g *fakeGateway) GetSubscription(string) (*stripeapi.Subscription, error) { return g.sub, nil }
func (g *fakeGateway) CancelSubscription(id string) error {
	g.canceled = append(g.canceled, id)
	return nil
}
func (g *fakeGateway) ListRecurringPrices() ([]*stripeapi.Price, error) { return nil, nil }
func (g *fakeGateway) ConstructEvent([]byte, string) (stripeapi.Event, error) {
	return g.event, g.eventErr
}

func event(typ, raw string) stripeapi.Event {
	var ev stripeapi.Event
	if err := json.Unmarshal([]byte(`{"id":"evt_1","type":"`+typ+`","data":{"object":`+raw+`}}`), &ev); err != nil {
		panic(err)
	}
	return ev
}

func subscription(id, status string, priceID string, periodEnd time.Time, md map[string]string) *stripeapi.Subscription {
	return &stripeapi.Subscription{
		ID:               id,
		Status:           stripeapi.SubscriptionStatus(status),
		CurrentPeriodEnd: periodEnd.Unix(),
		Metadata:         md,
		Items: &stripeapi.SubscriptionItemList{Data: []*stripeapi.SubscriptionItem{
			{Price: &stripeapi.Price{ID: priceID}},
		}},
	}
}

func post(h *Handler) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/stripe/webhook", h.StripeWebhook)
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var catalogue = fakePlans{"price_pro": {ID: 2, Key: plans.KeyPro, StripePriceID: strp("price_pro"), Active: true}}

func TestWebhook_CheckoutCompleted(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	us := newFakeUsers(users.User{ID: 5, Email: "ana@studio.io", SubscriptionID: strp("sub_old")})
	pays := &fakePayments{}
	gw := &fakeGateway{
		event: event("checkout.session.completed", `{"id":"cs_1","object":"checkout.session"}`),
		session: &stripeapi.CheckoutSession{
			ID:                "cs_1",
			ClientReferenceID: "5",
			Subscription:      &stripeapi.Subscription{ID: "sub_new"},
			Customer:          &stripeapi.Customer{ID: "cus_5"},
			AmountTotal:       1200,
			Currency:          "eur",
			PaymentStatus:     "paid",
		},
		sub: subscription("sub_new", "active", "price_pro", end, nil),
	}

	w := post(NewHandler(us, catalogue, pays, gw))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := us.updates[5]
	assert.Equal(t, plans.KeyPro, got["plan"])
	assert.Equal(t, "sub_new", got["subscription_id"])
	assert.Equal(t, "active", got["stripe_subscription_status"])
	assert.Equal(t, "cus_5", got["stripe_customer_id"])
	assert.Equal(t, end, got["current_period_end"])
	assert.Equal(t, []string{"sub_old"}, gw.canceled)

	require.Len(t, pays.recorded, 1)
	assert.Equal(t, billing.Payment{
		UserID:               5,
		PlanKey:              plans.KeyPro,
		StripeSessionID:      "cs_1",
		StripeSubscriptionID: strp("sub_new"),
		AmountEUR:            12,
		Currency:             "eur",
		Status:               "paid",
	}, pays.recorded[0])
}

func TestWebhook_SubscriptionUpdated(t *testing.T) {
	t.Parallel()

	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	us := newFakeUsers(users.User{ID: 7, SubscriptionID: strp("sub_7")})
	gw := &fakeGateway{}

	// unknown price with metadata plan=pro, found by subscription id
	sub := `{"id":"sub_7","status":"past_due","current_period_end":` + itoa(end.Unix()) +
		`,"items":{"data":[{"price":{"id":"price_legacy","metadata":{"plan":"pro"}}}]}}`
	gw.event = event("customer.subscription.updated", sub)

	w := post(NewHandler(us, catalogue, &fakePayments{}, gw))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := us.updates[7]
	assert.Equal(t, plans.KeyPro, got["plan"])
	assert.Equal(t, "past_due", got["stripe_subscription_status"])
	assert.Equal(t, end, got["current_period_end"])

	// unknown user is acknowledged
	gw.event = event("customer.subscription.updated", `{"id":"sub_x","items":{"data":[{"price":{"id":"price_pro"}}]}}`)
	assert.Equal(t, http.StatusOK, post(NewHandler(us, catalogue, &fakePayments{}, gw)).Code)
}

func TestWebhook_SubscriptionDeleted(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		end      time.Time
		wantPlan any
	}{
		{name: "paid through", end: now.Add(10 * 24 * time.Hour), wantPlan: nil},
		{name: "period over", end: now.Add(-time.Hour), wantPlan: plans.KeyFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			us := newFakeUsers(users.User{ID: 3, Plan: "pro"})
			gw := &fakeGateway{event: event("customer.subscription.deleted",
				`{"id":"sub_3","status":"canceled","current_period_end":`+itoa(tt.end.Unix())+`,"metadata":{"user_id":"3"}}`)}
			h := NewHandler(us, catalogue, &fakePayments{}, gw)
			h.now = func() time.Time { return now }

			require.Equal(t, http.StatusOK, post(h).Code)
			got := us.updates[3]
			assert.Equal(t, "canceled", got["stripe_subscription_status"])
			assert.Equal(t, tt.wantPlan, got["plan"])
		})
	}
}

func TestWebhook_Rejects(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusServiceUnavailable, post(NewHandler(newFakeUsers(), catalogue, &fakePayments{}, nil)).Code)

	bad := &fakeGateway{eventErr: errors.New("no signatures found")}
	assert.Equal(t, http.StatusBadRequest, post(NewHandler(newFakeUsers(), catalogue, &fakePayments{}, bad)).Code)

	ignored := &fakeGateway{event: event("invoice.created", `{}`)}
	w := post(NewHandler(newFakeUsers(), catalogue, &fakePayments{}, ignored))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ignored"}`, w.Body.String())

	orphan := &fakeGateway{
		event:   event("checkout.session.completed", `{"id":"cs_2"}`),
		session: &stripeapi.CheckoutSession{ID: "cs_2", Subscription: &stripeapi.Subscription{ID: "sub_2"}},
		sub:     subscription("sub_2", "active", "price_pro", time.Now(), nil),
	}
	assert.Equal(t, http.StatusInternalServerError, post(NewHandler(newFakeUsers(), catalogue, &fakePayments{}, orphan)).Code)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
