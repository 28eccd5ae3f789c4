package webhook

import (
	"context"
	"fmt"
	"time"

	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"resty.dev/v3"
)

// Notifier posts closed-lot summaries to the catalog collaborator so unsold
// stock goes back on offer there.
type Notifier struct {
	client *resty.Client
	url    string
}

func NewNotifier(url string) *Notifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second)

	return &Notifier{
		client: client,
		url:    url,
	}
}

type lotClosedPayload struct {
	LotID             string        `json:"lot_id"`
	Phase             string        `json:"phase"`
	FinalPrice        int64         `json:"final_price"`
	RemainingQuantity int32         `json:"remaining_quantity"`
	EndedAt           *time.Time    `json:"ended_at"`
	Sales             []salePayload `json:"sales"`
}

type salePayload struct {
	BidderID      string    `json:"bidder_id"`
	Quantity      int32     `json:"quantity"`
	ClearingPrice int64     `json:"clearing_price"`
	Timestamp     time.Time `json:"timestamp"`
}

func (n *Notifier) NotifyLotClosed(ctx context.Context, lot db.Lot, sales []db.Sale) error {
	payload := lotClosedPayload{
		LotID:             lot.ID.String(),
		Phase:             string(lot.Phase),
		FinalPrice:        derefInt64(lot.FinalPrice),
		RemainingQuantity: lot.RemainingQuantity,
		EndedAt:           lot.EndedAt,
		Sales:             make([]salePayload, 0, len(sales)),
	}
	for _, sale := range sales {
		payload.Sales = append(payload.Sales, salePayload{
			BidderID:      sale.BidderID,
			Quantity:      sale.Quantity,
			ClearingPrice: sale.ClearingPrice,
			Timestamp:     sale.CreatedAt,
		})
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post lot closed webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("lot closed webhook returned status %s", resp.Status())
	}
	return nil
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
