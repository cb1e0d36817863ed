package http

import (
	"encoding/json"
	"net/http"

	"github.com/fleetworks/workshop-backend-go/internal/domain/timer"
	"github.com/fleetworks/workshop-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type TimerHandler interface {
	Start(w http.ResponseWriter, r *http.Request)
	Pause(w http.ResponseWriter, r *http.Request)
	Resume(w http.ResponseWriter, r *http.Request)
	Stop(w http.ResponseWriter, r *http.Request)
	GetActive(w http.ResponseWriter, r *http.Request)
	ListByAssignment(w http.ResponseWriter, r *http.Request)
}

type timerHandlerImpl struct {
	timerService timer.TimerService
}

func NewTimerHandler(timerService timer.TimerService) TimerHandler {
	return &timerHandlerImpl{
		timerService: timerService,
	}
}

// Start implements TimerHandler.
func (h *timerHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	var req timer.StartTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.timerService.Start(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Timer started", result)
}

// Pause implements TimerHandler.
func (h *timerHandlerImpl) Pause(w http.ResponseWriter, r *http.Request) {
	result, err := h.timerService.Pause(r.Context(), chi.URLParam(r, "segmentID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Timer paused", result)
}

// Resume implements TimerHandler.
func (h *timerHandlerImpl) Resume(w http.ResponseWriter, r *http.Request) {
	result, err := h.timerService.Resume(r.Context(), chi.URLParam(r, "segmentID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Timer resumed", result)
}

// Stop implements TimerHandler.
func (h *timerHandlerImpl) Stop(w http.ResponseWriter, r *http.Request) {
	result, err := h.timerService.Stop(r.Context(), chi.URLParam(r, "segmentID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Timer stopped", result)
}

// GetActive implements TimerHandler.
func (h *timerHandlerImpl) GetActive(w http.ResponseWriter, r *http.Request) {
	result, err := h.timerService.GetActive(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListByAssignment implements TimerHandler.
func (h *timerHandlerImpl) ListByAssignment(w http.ResponseWriter, r *http.Request) {
	result, err := h.timerService.ListByAssignment(r.Context(), chi.URLParam(r, "assignmentID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
