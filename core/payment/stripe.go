package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

// StripeGateway charges through the stripe Charges API. Stripe amounts are
// expressed in minor units, so the listed price is converted at this edge.
type StripeGateway struct {
	api *stripecl.API
}

func NewStripeGateway(api *stripecl.API) *StripeGateway {
	return &StripeGateway{api: api}
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	params := &stripe.ChargeParams{
		Params:      stripe.Params{Context: ctx},
		Amount:      stripe.Int64(int64(req.Amount) * 100),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
	}
	params.AddMetadata("customer_ref", req.CustomerRef)

	ch, err := g.api.Charges.New(params)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("creating stripe charge: %w", err)
	}

	return ChargeResult{
		TransactionID: ch.ID,
		Succeeded:     ch.Status == stripe.ChargeStatusSucceeded,
	}, nil
}
