package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	db "github.com/florelle/veiling-BE/internal/db/sqlc"
	"github.com/florelle/veiling-BE/internal/util"
	"github.com/florelle/veiling-BE/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

type createLotRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     *string `json:"description"`
	StartPrice      int64   `json:"start_price"`
	EndPrice        int64   `json:"end_price"`
	DurationSeconds int32   `json:"duration_seconds"`
	TotalQuantity   int32   `json:"total_quantity"`
}

// createLot provisions a pending lot from its catalog parameters. The clock
// does not run until the lot is started or scheduled.
//
//	@Summary		Create a pending lot
//	@Tags			lots
//	@Accept			json
//	@Produce		json
//	@Param			request	body		createLotRequest	true	"Lot catalog and auction parameters"
//	@Success		201		{object}	db.Lot
//	@Failure		400		{object}	FailedValidationResponse
//	@Security		accessToken
//	@Router			/v1/lots [post]
func (server *Server) createLot(c *gin.Context) {
	sellerID := authenticatedUserID(c)

	var req createLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	violations := make([]*FieldViolation, 0)
	if req.StartPrice < req.EndPrice || req.EndPrice < 0 {
		violations = append(violations, fieldViolation("start_price", ErrInvalidPricing))
	}
	if req.DurationSeconds <= 0 {
		violations = append(violations, fieldViolation("duration_seconds", ErrInvalidDuration))
	}
	if req.TotalQuantity <= 0 {
		violations = append(violations, fieldViolation("total_quantity", ErrInvalidQuantity))
	}
	if len(violations) > 0 {
		c.JSON(http.StatusBadRequest, failedValidationError(violations))
		return
	}

	lotID, err := uuid.NewV7()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	lot, err := server.dbStore.CreateLot(c, db.CreateLotParams{
		ID:              lotID,
		Slug:            util.GenerateRandomSlug(req.Name),
		Name:            req.Name,
		SellerID:        sellerID,
		Description:     req.Description,
		StartPrice:      req.StartPrice,
		EndPrice:        req.EndPrice,
		DurationSeconds: req.DurationSeconds,
		TotalQuantity:   req.TotalQuantity,
	})
	if err != nil {
		log.Err(err).Msg("failed to create lot")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, lot)
}

// listLots lists lots, optionally filtered by phase with the ?phase query
// parameter.
//
//	@Summary	List lots
//	@Tags		lots
//	@Produce	json
//	@Param		phase	query		string	false	"Filter by phase"	Enums(pending, active, sold, expired, cancelled)
//	@Success	200		{array}		db.Lot
//	@Router		/v1/lots [get]
func (server *Server) listLots(c *gin.Context) {
	var phase db.NullLotPhase
	if phaseStr := c.Query("phase"); phaseStr != "" {
		if err := phase.LotPhase.Scan(phaseStr); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err))
			return
		}
		phase.Valid = true
	}

	lots, err := server.dbStore.ListLots(c, phase)
	if err != nil {
		log.Err(err).Msg("failed to list lots")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, lots)
}

type lotDetailsResponse struct {
	db.Lot
	CurrentPrice *int64 `json:"current_price,omitempty"`
	LiveQuantity *int32 `json:"live_quantity,omitempty"`
}

// getLotDetails returns the durable lot row. While the clock is running the
// response is overlaid with the last published tick, which is authoritative
// over the durable row.
//
//	@Summary	Get one lot
//	@Tags		lots
//	@Produce	json
//	@Param		lotID	path		string	true	"Lot ID"
//	@Success	200		{object}	lotDetailsResponse
//	@Failure	404		{object}	object	"Lot not found"
//	@Router		/v1/lots/{lotID} [get]
func (server *Server) getLotDetails(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("lotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid lot ID format")))
		return
	}

	lot, err := server.dbStore.GetLotByID(c, lotID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			err = fmt.Errorf("lot ID %s not found", lotID)
			c.JSON(http.StatusNotFound, errorResponse(err))
			return
		}

		log.Err(err).Msg("failed to get lot")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	resp := lotDetailsResponse{Lot: lot}
	if coordinator, ok := server.engine.Get(lotID); ok {
		tick := coordinator.LastTick()
		resp.CurrentPrice = util.Int64Pointer(tick.Price)
		resp.LiveQuantity = util.Int32Pointer(int32(tick.Remaining))
	}

	c.JSON(http.StatusOK, resp)
}

type scheduleLotRequest struct {
	StartAt time.Time `json:"start_at" binding:"required"`
}

// scheduleLot arranges for a pending lot's clock to open at a given time.
//
//	@Summary	Schedule a lot's clock to open
//	@Tags		lots
//	@Accept		json
//	@Produce	json
//	@Param		lotID	path		string				true	"Lot ID"
//	@Param		request	body		scheduleLotRequest	true	"Start time"
//	@Success	200		{object}	db.Lot
//	@Failure	422		{object}	object	"Lot is not pending"
//	@Security	accessToken
//	@Router		/v1/lots/{lotID}/schedule [post]
func (server *Server) scheduleLot(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("lotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid lot ID format")))
		return
	}

	var req scheduleLotRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid request body: %w", err)))
		return
	}

	if req.StartAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, errorResponse(ErrScheduleInPast))
		return
	}

	lot, err := server.dbStore.GetLotByID(c, lotID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			err = fmt.Errorf("lot ID %s not found", lotID)
			c.JSON(http.StatusNotFound, errorResponse(err))
			return
		}

		log.Err(err).Msg("failed to get lot")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	if lot.Phase != db.LotPhasePending {
		c.JSON(http.StatusUnprocessableEntity, errorResponse(ErrLotNotPending))
		return
	}

	lot, err = server.dbStore.UpdateLot(c, db.UpdateLotParams{
		ID:          lotID,
		ScheduledAt: util.TimePointer(req.StartAt),
	})
	if err != nil {
		log.Err(err).Msg("failed to update lot schedule")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	err = server.taskDistributor.DistributeTaskStartAuction(c, &worker.PayloadStartAuction{
		LotID: lotID,
	}, asynq.ProcessAt(req.StartAt), asynq.MaxRetry(3), asynq.Queue(worker.QueueCritical))
	if err != nil {
		log.Err(err).Msg("failed to schedule auction start task")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, lot)
}

// startLot opens a pending lot's clock now. The start itself runs through
// the same task the scheduler uses, so both paths share one code path.
//
//	@Summary	Open a lot's clock now
//	@Tags		lots
//	@Produce	json
//	@Param		lotID	path	string	true	"Lot ID"
//	@Success	202		"Start requested"
//	@Failure	422		{object}	object	"Lot is not pending"
//	@Security	accessToken
//	@Router		/v1/lots/{lotID}/start [post]
func (server *Server) startLot(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("lotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid lot ID format")))
		return
	}

	lot, err := server.dbStore.GetLotByID(c, lotID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			err = fmt.Errorf("lot ID %s not found", lotID)
			c.JSON(http.StatusNotFound, errorResponse(err))
			return
		}

		log.Err(err).Msg("failed to get lot")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	if lot.Phase != db.LotPhasePending {
		c.JSON(http.StatusUnprocessableEntity, errorResponse(ErrLotNotPending))
		return
	}

	err = server.taskDistributor.DistributeTaskStartAuction(c, &worker.PayloadStartAuction{
		LotID: lotID,
	}, asynq.MaxRetry(3), asynq.Queue(worker.QueueCritical))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// A scheduled start already exists for this lot.
			c.JSON(http.StatusConflict, errorResponse(fmt.Errorf("lot ID %s already has a pending start", lotID)))
			return
		}

		log.Err(err).Msg("failed to enqueue auction start task")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "lot start requested"})
}

// cancelLot aborts a lot. A running lot is closed through its coordinator so
// subscribers get the terminal event; a pending lot is finalized directly and
// its scheduled start task is removed. Cancelling a lot that already reached
// a terminal phase is a no-op.
//
//	@Summary	Cancel a lot
//	@Tags		lots
//	@Produce	json
//	@Param		lotID	path		string	true	"Lot ID"
//	@Success	200		{object}	db.Lot
//	@Failure	404		{object}	object	"Lot not found"
//	@Security	accessToken
//	@Router		/v1/lots/{lotID}/cancel [patch]
func (server *Server) cancelLot(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("lotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid lot ID format")))
		return
	}

	// A running clock owns its lot's lifecycle; the coordinator publishes
	// auction_closed and the finalize task persists the terminal row.
	if server.engine.Cancel(lotID) {
		c.JSON(http.StatusOK, gin.H{"message": "lot cancelled"})
		return
	}

	lot, err := server.dbStore.GetLotByID(c, lotID)
	if err != nil {
		if errors.Is(err, db.ErrRecordNotFound) {
			err = fmt.Errorf("lot ID %s not found", lotID)
			c.JSON(http.StatusNotFound, errorResponse(err))
			return
		}

		log.Err(err).Msg("failed to get lot")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	if lot.Phase.IsTerminal() {
		c.JSON(http.StatusOK, lot)
		return
	}

	// Remove the scheduled start, if any, before finalizing.
	if err = server.taskInspector.CancelScheduledStart(c, lotID); err != nil {
		log.Err(err).Str("lot_id", lotID.String()).Msg("failed to delete scheduled start task")
	}

	lot, err = server.dbStore.FinalizeLotTx(c, db.FinalizeLotTxParams{
		LotID:             lotID,
		Phase:             db.LotPhaseCancelled,
		FinalPrice:        lot.StartPrice,
		RemainingQuantity: lot.RemainingQuantity,
		EndedAt:           time.Now(),
	})
	if err != nil {
		log.Err(err).Msg("failed to finalize cancelled lot")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, lot)
}

// listLotSales returns the sales recorded against one lot, oldest first.
//
//	@Summary	List sales of one lot
//	@Tags		lots
//	@Produce	json
//	@Param		lotID	path	string	true	"Lot ID"
//	@Success	200		{array}	db.Sale
//	@Router		/v1/lots/{lotID}/sales [get]
func (server *Server) listLotSales(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("lotID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(fmt.Errorf("invalid lot ID format")))
		return
	}

	sales, err := server.dbStore.ListSalesByLot(c, lotID)
	if err != nil {
		log.Err(err).Msg("failed to list lot sales")
		c.JSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, sales)
}
