package http

import (
	"encoding/json"
	"net/http"

	"github.com/fleetworks/workshop-backend-go/internal/domain/jobcard"
	"github.com/fleetworks/workshop-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type JobCardHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	Reassign(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
}

type jobCardHandlerImpl struct {
	jobCardService jobcard.JobCardService
}

func NewJobCardHandler(jobCardService jobcard.JobCardService) JobCardHandler {
	return &jobCardHandlerImpl{
		jobCardService: jobCardService,
	}
}

// Get implements JobCardHandler.
func (h *jobCardHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.jobCardService.GetJobCard(r.Context(), chi.URLParam(r, "jobCardID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Reassign implements JobCardHandler.
func (h *jobCardHandlerImpl) Reassign(w http.ResponseWriter, r *http.Request) {
	var req jobcard.ReassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.AssignmentID = chi.URLParam(r, "assignmentID")

	result, err := h.jobCardService.Reassign(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Assignment reassigned", result)
}

// Cancel implements JobCardHandler.
func (h *jobCardHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	result, err := h.jobCardService.CancelAssignment(r.Context(), chi.URLParam(r, "assignmentID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Assignment cancelled", result)
}
