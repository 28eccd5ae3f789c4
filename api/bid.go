package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/florelle/veiling-BE/internal/auction"
	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type placeBidRequest struct {
	Quantity      int   `json:"quantity"`
	ObservedPrice int64 `json:"observed_price"`
}

// placeBid submits a bid against a lot's running clock. An accepted bid
// returns the awarded quantity and the clearing price; a rejected bid
// returns 422 with the rejection reason. A bid is never silently repriced:
// when the observed price is below the current clock price the bidder must
// re-read the clock and decide again.
//
//	@Summary	Place a bid on a running lot
//	@Tags		bids
//	@Accept		json
//	@Produce	json
//	@Param		lotID	path		string			true	"Lot ID"
//	@Param		request	body		placeBidRequest	true	"Quantity and the price the bidder observed"
//	@Success	200		{object}	auction.BidOutcome
//	@Failure	422		{object}	auction.BidOutcome	"Rejected with reason"
//	@Security	accessToken
//	@Router		/v1/users/me/lots/{lotID}/bids [post]
func (server *Server) placeBid(c *gin.Context) {
	bidderID := authenticatedUserID(c)

	lotID, err := uuid.Parse(c.Param("lotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid lot ID format")))
		return
	}

	var req placeBidRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	if req.Quantity <= 0 {
		err = fmt.Errorf("bid quantity must be greater than 0, provided: %d", req.Quantity)
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	if req.ObservedPrice < 0 {
		err = fmt.Errorf("observed price must not be negative, provided: %d", req.ObservedPrice)
		c.JSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	coordinator, ok := server.engine.Get(lotID)
	if !ok {
		// No running clock. Distinguish an unknown lot from one whose
		// auction is simply not running.
		lot, err := server.dbStore.GetLotByID(c, lotID)
		if err != nil {
			if errors.Is(err, db.ErrRecordNotFound) {
				err = fmt.Errorf("lot ID %s not found", lotID)
				c.JSON(http.StatusNotFound, errorResponse(err))
				return
			}

			c.JSON(http.StatusInternalServerError, errorResponse(err))
			return
		}

		c.JSON(http.StatusUnprocessableEntity, auction.BidOutcome{
			Accepted:          false,
			Reason:            auction.ReasonAuctionClosed,
			RemainingQuantity: int(lot.RemainingQuantity),
		})
		return
	}

	outcome := coordinator.SubmitBid(c.Request.Context(), auction.BidAttempt{
		LotID:         lotID,
		BidderID:      bidderID,
		Quantity:      req.Quantity,
		ObservedPrice: req.ObservedPrice,
	})

	if !outcome.Accepted {
		c.JSON(http.StatusUnprocessableEntity, outcome)
		return
	}

	c.JSON(http.StatusOK, outcome)
}
