package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fleetworks/workshop-backend-go/internal/domain/shift"
	"github.com/fleetworks/workshop-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ShiftHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	GetCurrent(w http.ResponseWriter, r *http.Request)
	ListMyShifts(w http.ResponseWriter, r *http.Request)
	Adjust(w http.ResponseWriter, r *http.Request)
}

type shiftHandlerImpl struct {
	shiftService shift.ShiftService
}

func NewShiftHandler(shiftService shift.ShiftService) ShiftHandler {
	return &shiftHandlerImpl{
		shiftService: shiftService,
	}
}

// ClockIn implements ShiftHandler.
func (h *shiftHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req shift.ClockInRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
	}

	result, err := h.shiftService.ClockIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Clocked in", result)
}

// ClockOut implements ShiftHandler.
func (h *shiftHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	result, err := h.shiftService.ClockOut(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clocked out", result)
}

// StartBreak implements ShiftHandler.
func (h *shiftHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	result, err := h.shiftService.StartBreak(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break started", result)
}

// EndBreak implements ShiftHandler.
func (h *shiftHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	result, err := h.shiftService.EndBreak(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break ended", result)
}

// GetCurrent implements ShiftHandler.
func (h *shiftHandlerImpl) GetCurrent(w http.ResponseWriter, r *http.Request) {
	result, err := h.shiftService.GetCurrent(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListMyShifts implements ShiftHandler.
func (h *shiftHandlerImpl) ListMyShifts(w http.ResponseWriter, r *http.Request) {
	filter := shift.ShiftFilter{
		SortOrder: r.URL.Query().Get("sort_order"),
	}

	if v := r.URL.Query().Get("start_date"); v != "" {
		filter.StartDate = &v
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		filter.EndDate = &v
	}
	if v := r.URL.Query().Get("open"); v != "" {
		open := v == "true"
		filter.Open = &open
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil {
			filter.Page = page
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filter.Limit = limit
		}
	}

	result, err := h.shiftService.ListMyShifts(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Shifts, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// Adjust implements ShiftHandler.
func (h *shiftHandlerImpl) Adjust(w http.ResponseWriter, r *http.Request) {
	var req shift.AdjustShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ShiftID = chi.URLParam(r, "shiftID")

	result, err := h.shiftService.Adjust(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift adjusted", result)
}
