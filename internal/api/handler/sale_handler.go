package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/linkloot/affiliate-api/internal/core/ports"
)

// SaleDispatcher is the interface the handler uses to enqueue sale events.
// An error means nothing was queued.
type SaleDispatcher interface {
	Enqueue(event ports.SaleEventInput) error
	EnqueueBatch(events []ports.SaleEventInput) error
}

func enqueueError(err error) error {
	return echo.NewHTTPError(http.StatusServiceUnavailable, "sale ingestion is not accepting events").SetInternal(err)
}

// SaleHandler handles affiliate sale postbacks.
type SaleHandler struct {
	dispatcher SaleDispatcher
}

// NewSaleHandler creates a SaleHandler backed by the given dispatcher.
func NewSaleHandler(dispatcher SaleDispatcher) *SaleHandler {
	return &SaleHandler{dispatcher: dispatcher}
}

// Receive handles POST /events/sales: enqueues a single sale, returns 202.
//
// @Summary      Ingest a sale postback
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      saleEventRequest  true  "Sale event"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /events/sales [post]
func (h *SaleHandler) Receive(c echo.Context) error {
	var req saleEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.dispatcher.Enqueue(toSaleInput(req)); err != nil {
		return enqueueError(err)
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "sale accepted"})
}

// ReceiveBatch handles POST /events/sales/batch: enqueues a batch, returns 202.
// The batch is rejected as a whole if any event is invalid.
//
// @Summary      Ingest a batch of sale postbacks
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      []saleEventRequest  true  "Array of sale events"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /events/sales/batch [post]
func (h *SaleHandler) ReceiveBatch(c echo.Context) error {
	var reqs []saleEventRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}

	inputs := make([]ports.SaleEventInput, 0, len(reqs))
	for i, req := range reqs {
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("event[%d]: %s", i, err.Error()))
		}
		inputs = append(inputs, toSaleInput(req))
	}

	if err := h.dispatcher.EnqueueBatch(inputs); err != nil {
		return enqueueError(err)
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "sales accepted",
		Count:   len(inputs),
	})
}
