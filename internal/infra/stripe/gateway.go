package stripe

import (
	"errors"

	stripeapi "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/webhook"

	"mailforge/config"
)

var ErrNotConfigured = errors.New("stripe: not configured")

// Gateway is the slice of the Stripe API the billing handlers use.
type Gateway interface {
	CreateCustomer(params *stripeapi.CustomerParams) (string, error)
	CreateCheckoutSession(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
	CreatePortalSession(customerID, returnURL string) (string, error)
	GetCheckoutSession(id string) (*stripeapi.CheckoutSession, error)
	GetSubscription(id string) (*stripeapi.Subscription, error)
	CancelSubscription(id string) error
	ListRecurringPrices() ([]*stripeapi.Price, error)
	ConstructEvent(payload []byte, signature string) (stripeapi.Event, error)
}

type Client struct {
	api           *client.API
	webhookSecret string
}

// New returns ErrNotConfigured when no secret key is set.
func New(cfg config.Stripe) (*Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	return &Client{api: client.New(cfg.SecretKey, nil), webhookSecret: cfg.WebhookSecret}, nil
}

func (c *Client) CreateCustomer(params *stripeapi.CustomerParams) (string, error) {
	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}

func (c *Client) CreateCheckoutSession(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	return c.api.CheckoutSessions.New(params)
}

func (c *Client) CreatePortalSession(customerID, returnURL string) (string, error) {
	s, err := c.api.BillingPortalSessions.New(&stripeapi.BillingPortalSessionParams{
		Customer:  stripeapi.String(customerID),
		ReturnURL: stripeapi.String(returnURL),
	})
	if err != nil {
		return "", err
	}
	return s.URL, nil
}

// GetCheckoutSession expands the subscription and customer.
func (c *Client) GetCheckoutSession(id string) (*stripeapi.CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.AddExpand("subscription")
	params.AddExpand("customer")
	return c.api.CheckoutSessions.Get(id, params)
}

func (c *Client) GetSubscription(id string) (*stripeapi.Subscription, error) {
	return c.api.Subscriptions.Get(id, nil)
}

func (c *Client) CancelSubscription(id string) error {
	_, err := c.api.Subscriptions.Cancel(id, nil)
	return err
}

// ListRecurringPrices returns active recurring prices with their product expanded.
func (c *Client) ListRecurringPrices() ([]*stripeapi.Price, error) {
	params := &stripeapi.PriceListParams{}
	params.Active = stripeapi.Bool(true)
	params.Type = stripeapi.String("recurring")
	params.AddExpand("data.product")

	var out []*stripeapi.Price
	it := c.api.Prices.List(params)
	for it.Next() {
		out = append(out, it.Price())
	}
	return out, it.Err()
}

func (c *Client) ConstructEvent(payload []byte, signature string) (stripeapi.Event, error) {
	if c.webhookSecret == "" {
		return stripeapi.Event{}, ErrNotConfigured
	}
	return webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
}
