package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/plutov/paypal/v4"
)

// PaypalGateway charges through the paypal orders API: it creates a
// capture-intent order and captures it in the same call, so the charge is
// synchronous from the caller's point of view.
type PaypalGateway struct {
	client *paypal.Client
}

func NewPaypalGateway(client *paypal.Client) *PaypalGateway {
	return &PaypalGateway{client: client}
}

func (g *PaypalGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	units := []paypal.PurchaseUnitRequest{{
		Description: req.Description,
		CustomID:    req.CustomerRef,

		Amount: &paypal.PurchaseUnitAmount{
			Currency: strings.ToUpper(req.Currency),
			Value:    strconv.Itoa(req.Amount),
		},
	}}

	ord, err := g.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, nil)
	if err != nil {
		return ChargeResult{}, fmt.Errorf("creating paypal order: %w", err)
	}

	capture, err := g.client.CaptureOrder(ctx, ord.ID, paypal.CaptureOrderRequest{})
	if err != nil {
		return ChargeResult{TransactionID: ord.ID}, fmt.Errorf("capturing paypal order[%s]: %w", ord.ID, err)
	}

	return ChargeResult{
		TransactionID: capture.ID,
		Succeeded:     capture.Status == "COMPLETED",
	}, nil
}
