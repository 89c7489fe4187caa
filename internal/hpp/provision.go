package hpp

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aaane/member-portal/backend/internal/models"
)

// ErrPartialProvisioning marks the severe partial-success case: the widget
// captured a payment but a follow-up provisioning write failed. No automatic
// compensation is attempted; an incident is recorded for manual support
// intervention.
var ErrPartialProvisioning = errors.New("hpp: payment captured but provisioning incomplete")

// BillingAPI is the subset of the billing client the provisioner needs.
type BillingAPI interface {
	CreateAccountProduct(ctx context.Context, accountID string, product models.Product) (models.AccountProduct, error)
	GetAccountProductsByAccountID(ctx context.Context, accountID string) ([]models.AccountProduct, error)
	DeactivateAccountProduct(ctx context.Context, ap models.AccountProduct) (models.AccountProduct, error)
	FindPromoCode(ctx context.Context, code string) (models.PromoCode, bool, error)
	AddAccountPromoCode(ctx context.Context, accountID, promoCodeID string) error
}

// IncidentRecorder persists provisioning incidents for the support queue.
type IncidentRecorder interface {
	RecordIncident(ctx context.Context, incident *models.ProvisioningIncident) error
}

// ProvisionRequest is everything needed to reconcile a successful payment
// into backend state.
type ProvisionRequest struct {
	SessionID string
	AccountID string
	Product   models.Product

	// PromoCode, when set, is attached to the account after activation.
	PromoCode string

	// PriorProductID, when set, identifies the subscription being replaced
	// (upgrade flow); its active record is deactivated after the new one is
	// created.
	PriorProductID string
}

// ProvisionResult reports what was written.
type ProvisionResult struct {
	AccountProduct models.AccountProduct
	PromoApplied   bool
	PriorEnded     bool
}

// SubscriptionProvisioner reconciles a captured payment into backend state.
type SubscriptionProvisioner interface {
	Provision(ctx context.Context, req ProvisionRequest) (ProvisionResult, error)
}

// Provisioner is the production SubscriptionProvisioner backed by the
// billing platform and the incident store.
type Provisioner struct {
	api       BillingAPI
	incidents IncidentRecorder
}

// NewProvisioner creates a provisioner.
func NewProvisioner(api BillingAPI, incidents IncidentRecorder) *Provisioner {
	return &Provisioner{api: api, incidents: incidents}
}

// Provision creates the new subscription record, applies the promo code, and
// deactivates the replaced subscription, in that order. The new record must
// exist before the old one is ended so the member never has zero active
// subscriptions after a captured payment.
//
// Any failure here is a partial success from the member's point of view (the
// charge already went through), so every failure records an incident. A
// failure after the subscription was created is reported as
// ErrPartialProvisioning but does not undo the activation.
func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (ProvisionResult, error) {
	var result ProvisionResult

	ap, err := p.api.CreateAccountProduct(ctx, req.AccountID, req.Product)
	if err != nil {
		p.recordIncident(ctx, req, "activate_subscription", err)
		return result, fmt.Errorf("%w: activate subscription: %v", ErrPartialProvisioning, err)
	}
	result.AccountProduct = ap

	if req.PromoCode != "" {
		if err := p.applyPromo(ctx, req); err != nil {
			p.recordIncident(ctx, req, "apply_promo", err)
			return result, fmt.Errorf("%w: apply promo: %v", ErrPartialProvisioning, err)
		}
		result.PromoApplied = true
	}

	if req.PriorProductID != "" {
		if err := p.deactivatePrior(ctx, req); err != nil {
			p.recordIncident(ctx, req, "deactivate_prior_subscription", err)
			return result, fmt.Errorf("%w: deactivate prior subscription: %v", ErrPartialProvisioning, err)
		}
		result.PriorEnded = true
	}

	return result, nil
}

func (p *Provisioner) applyPromo(ctx context.Context, req ProvisionRequest) error {
	promo, ok, err := p.api.FindPromoCode(ctx, req.PromoCode)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("promo code %q no longer active", req.PromoCode)
	}
	return p.api.AddAccountPromoCode(ctx, req.AccountID, promo.ID)
}

func (p *Provisioner) deactivatePrior(ctx context.Context, req ProvisionRequest) error {
	products, err := p.api.GetAccountProductsByAccountID(ctx, req.AccountID)
	if err != nil {
		return err
	}
	for _, ap := range products {
		if ap.Status == models.AccountProductActive && ap.ProductID == req.PriorProductID {
			_, err := p.api.DeactivateAccountProduct(ctx, ap)
			return err
		}
	}
	// No matching active record; nothing to end.
	return nil
}

func (p *Provisioner) recordIncident(ctx context.Context, req ProvisionRequest, stage string, cause error) {
	incident := &models.ProvisioningIncident{
		SessionID: req.SessionID,
		AccountID: req.AccountID,
		ProductID: req.Product.ID,
		Stage:     stage,
		Detail:    cause.Error(),
		Status:    models.IncidentStatusOpen,
	}
	if p.incidents == nil {
		log.Printf("[hpp] no incident store configured; dropping incident for session %s stage %s: %v", req.SessionID, stage, cause)
		return
	}
	if err := p.incidents.RecordIncident(ctx, incident); err != nil {
		log.Printf("[hpp] failed to record provisioning incident for session %s: %v", req.SessionID, err)
	}
}
