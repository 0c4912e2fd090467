package service

import (
	"LinkVault-Backend/internal/config"
	"LinkVault-Backend/internal/domain"
	"LinkVault-Backend/internal/repository"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	subscriptionpkg "github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

// ErrNoActiveSubscription is returned when a billing-portal session is
// requested for an account without a stored subscription reference.
var ErrNoActiveSubscription = errors.New("no active subscription found")

// BillingService talks to the billing provider (checkout and portal
// sessions) and reconciles its asynchronous webhook events into plan
// transitions on the account store.
type BillingService struct {
	storage repository.Storage
	log     *zap.Logger
	cfg     *config.Stripe
	baseURL string

	// retrieveSubscription resolves a subscription id via the provider API.
	// Swappable in tests so invoice events can be reconciled offline.
	retrieveSubscription func(id string) (*stripe.Subscription, error)
}

// NewBilling creates a new billing service and sets the global Stripe key.
func NewBilling(storage repository.Storage, cfg *config.Stripe, baseURL string, log *zap.Logger) *BillingService {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &BillingService{
		storage: storage,
		log:     log,
		cfg:     cfg,
		baseURL: baseURL,
		retrieveSubscription: func(id string) (*stripe.Subscription, error) {
			return subscriptionpkg.Get(id, nil)
		},
	}
}

// CreateCheckoutSession creates a subscription-mode checkout session for
// the premium plan and returns its id and redirect URL. The user id rides
// along in both the session and subscription metadata so webhook events can
// be attributed later.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID, email, priceID string, annual bool) (string, string, error) {
	account, err := s.storage.FindOrCreateAccount(ctx, userID, email)
	if err != nil {
		return "", "", fmt.Errorf("failed to load account: %w", err)
	}

	isAnnual := "false"
	if annual {
		isAnnual = "true"
	}

	params := &stripe.CheckoutSessionParams{
		CustomerEmail:      stripe.String(account.Email),
		PaymentMethodTypes: stripe.StringSlice([]string{"card", "link"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(s.baseURL + "/dashboard?success=true"),
		CancelURL:  stripe.String(s.baseURL + "/pricing?canceled=true"),
		Metadata: map[string]string{
			"userId":   userID,
			"plan":     domain.PlanPremium,
			"isAnnual": isAnnual,
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"userId": userID,
				"plan":   domain.PlanPremium,
			},
		},
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		s.log.Error("failed to create checkout session",
			zap.String("user_id", userID),
			zap.String("price_id", priceID),
			zap.Error(err))
		return "", "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.log.Info("created checkout session",
		zap.String("user_id", userID),
		zap.String("session_id", sess.ID))
	return sess.ID, sess.URL, nil
}

// CreatePortalSession creates a billing-portal session for an account with
// a stored subscription and returns the redirect URL.
func (s *BillingService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	account, err := s.storage.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", ErrNoActiveSubscription
		}
		return "", fmt.Errorf("failed to load account: %w", err)
	}
	if account.SubscriptionID == nil || *account.SubscriptionID == "" {
		return "", ErrNoActiveSubscription
	}

	sub, err := s.retrieveSubscription(*account.SubscriptionID)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve subscription: %w", err)
	}
	if sub.Customer == nil {
		return "", fmt.Errorf("subscription %s has no customer", sub.ID)
	}

	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(sub.Customer.ID),
		ReturnURL: stripe.String(s.baseURL + "/settings"),
	})
	if err != nil {
		s.log.Error("failed to create billing portal session",
			zap.String("user_id", userID),
			zap.Error(err))
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}

	return sess.URL, nil
}

// VerifyEvent checks the webhook payload signature against the shared
// secret and parses the event. Verification is a mandatory precondition:
// no event is interpreted before its signature is validated. API-version
// mismatches are tolerated so an endpoint pinned to a different Stripe API
// version keeps delivering; the payload fields read here are stable across
// versions.
func (s *BillingService) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
}

// ApplyEvent reconciles a verified billing event into account state. Every
// transition writes absolute target state, so redelivered or duplicated
// events converge to the same result. Events that cannot be attributed to a
// user are logged and dropped; there is no compensating lookup path.
func (s *BillingService) ApplyEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		// Plan state transitions ride on customer.subscription.created;
		// checkout completion is informational.
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("invalid checkout session payload: %w", err)
		}
		s.log.Info("checkout completed", zap.String("user_id", sess.Metadata["userId"]))
		return nil

	case "customer.subscription.created":
		sub, userID, err := s.subscriptionFromEvent(event)
		if err != nil {
			return err
		}
		if userID == "" {
			s.dropUnattributed(event)
			return nil
		}
		return s.storage.UpdateAccountPlan(ctx, userID, domain.PlanPremium, domain.SubscriptionActive, &sub.ID)

	case "customer.subscription.updated":
		sub, userID, err := s.subscriptionFromEvent(event)
		if err != nil {
			return err
		}
		if userID == "" {
			s.dropUnattributed(event)
			return nil
		}
		switch sub.Status {
		case stripe.SubscriptionStatusActive:
			return s.storage.UpdateAccountPlan(ctx, userID, domain.PlanPremium, domain.SubscriptionActive, &sub.ID)
		case stripe.SubscriptionStatusCanceled:
			return s.storage.UpdateAccountPlan(ctx, userID, domain.PlanFree, domain.SubscriptionCancelled, &sub.ID)
		default:
			return s.storage.UpdateAccountPlan(ctx, userID, domain.PlanFree, domain.SubscriptionInactive, &sub.ID)
		}

	case "customer.subscription.deleted":
		_, userID, err := s.subscriptionFromEvent(event)
		if err != nil {
			return err
		}
		if userID == "" {
			s.dropUnattributed(event)
			return nil
		}
		return s.storage.UpdateAccountPlan(ctx, userID, domain.PlanFree, domain.SubscriptionCancelled, nil)

	case "invoice.payment_succeeded":
		subID, err := s.invoiceSubscriptionID(event)
		if err != nil {
			return err
		}
		if subID == "" {
			s.log.Info("invoice without subscription, skipping", zap.String("event_id", event.ID))
			return nil
		}
		sub, err := s.retrieveSubscription(subID)
		if err != nil {
			return fmt.Errorf("failed to resolve subscription %s: %w", subID, err)
		}
		userID := sub.Metadata["userId"]
		if userID == "" {
			s.dropUnattributed(event)
			return nil
		}
		// Defensive re-sync: a paid invoice means the subscription is live.
		return s.storage.UpdateAccountPlan(ctx, userID, domain.PlanPremium, domain.SubscriptionActive, &subID)

	case "invoice.payment_failed":
		// The provider's own dunning flow is authoritative; just log.
		s.log.Warn("invoice payment failed", zap.String("event_id", event.ID))
		return nil

	default:
		s.log.Debug("unhandled billing event", zap.String("event_type", string(event.Type)))
		return nil
	}
}

// subscriptionFromEvent parses the subscription payload and extracts the
// owning user id from its metadata.
func (s *BillingService) subscriptionFromEvent(event stripe.Event) (*stripe.Subscription, string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, "", fmt.Errorf("invalid subscription payload: %w", err)
	}
	return &sub, sub.Metadata["userId"], nil
}

// invoiceSubscriptionID extracts the subscription reference from an invoice
// event's line items.
func (s *BillingService) invoiceSubscriptionID(event stripe.Event) (string, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return "", fmt.Errorf("invalid invoice payload: %w", err)
	}
	if invoice.Lines != nil {
		for _, line := range invoice.Lines.Data {
			if line.Subscription != nil && line.Subscription.ID != "" {
				return line.Subscription.ID, nil
			}
		}
	}
	return "", nil
}

func (s *BillingService) dropUnattributed(event stripe.Event) {
	s.log.Warn("billing event has no resolvable user id, dropping",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
}
