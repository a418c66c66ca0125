package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ChargeUpdate is the canonical form of a recurring-application-charge
// webhook payload. Shopify has shipped both a wrapped shape
// ({"recurring_application_charge": {...}}) and a flat shape across API
// versions, and price arrives as either a JSON string or a number, so raw
// payloads are normalized into this struct before any reconciliation logic
// sees them.
type ChargeUpdate struct {
	ChargeID string
	Name     string
	Price    float64
	Status   string
	Interval string
}

type chargePayload struct {
	ID       json.Number `json:"id"`
	Name     string      `json:"name"`
	Price    flexPrice   `json:"price"`
	Status   string      `json:"status"`
	Interval string      `json:"interval"`
}

// flexPrice accepts "29.00" and 29.0 alike.
type flexPrice float64

func (p *flexPrice) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", s, err)
	}
	*p = flexPrice(v)
	return nil
}

// NormalizeChargePayload parses a charge webhook body into its canonical
// form. It tolerates the wrapped and flat payload variants but rejects
// bodies with no usable charge identifier.
func NormalizeChargePayload(raw []byte) (*ChargeUpdate, error) {
	var wrapped struct {
		Charge *chargePayload `json:"recurring_application_charge"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	charge := wrapped.Charge
	if charge == nil {
		var flat chargePayload
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		charge = &flat
	}

	id := charge.ID.String()
	if id == "" || id == "0" {
		return nil, fmt.Errorf("%w: missing charge id", ErrInvalidPayload)
	}

	return &ChargeUpdate{
		ChargeID: id,
		Name:     charge.Name,
		Price:    float64(charge.Price),
		Status:   strings.ToLower(strings.TrimSpace(charge.Status)),
		Interval: strings.ToLower(strings.TrimSpace(charge.Interval)),
	}, nil
}

// NormalizePlanStatus maps Shopify charge statuses onto the internal plan
// status enum. Anything unrecognized is treated as pending rather than
// active so an unknown status never grants access.
func NormalizePlanStatus(chargeStatus string) PlanStatus {
	switch strings.ToLower(strings.TrimSpace(chargeStatus)) {
	case "active", "accepted":
		return PlanStatusActive
	case "cancelled", "declined", "expired", "frozen":
		return PlanStatusCancelled
	default:
		return PlanStatusPending
	}
}

// InferPlanType decides the tier from charge name, interval, and price.
// annualPrice is the configured annual plan price.
func (u *ChargeUpdate) InferPlanType(annualPrice float64) PlanType {
	if strings.Contains(strings.ToLower(u.Name), "annual") {
		return PlanAnnual
	}
	if strings.Contains(u.Interval, "annual") {
		return PlanAnnual
	}
	if annualPrice > 0 && u.Price >= annualPrice {
		return PlanAnnual
	}
	return PlanMonthly
}
