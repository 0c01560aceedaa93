package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clinicdesk/appointment-engine/internal/lock"
	"github.com/clinicdesk/appointment-engine/internal/scheduling"
)

type Handler struct {
	svc      *scheduling.Service
	validate *validator.Validate
}

func NewHandler(svc *scheduling.Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathID(w, r, "id", "doctor id")
	if !ok {
		return
	}

	day, err := time.ParseInLocation(dateFormat, r.URL.Query().Get("date"), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	granularity := 0
	if raw := r.URL.Query().Get("granularity"); raw != "" {
		granularity, err = strconv.Atoi(raw)
		if err != nil || granularity <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_granularity", "granularity must be a positive integer of minutes")
			return
		}
	}

	slots, err := h.svc.ListSlots(r.Context(), doctorID, day, granularity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]SlotResponse, 0, len(slots))
	for _, sl := range slots {
		resp = append(resp, SlotResponse{
			Start:     sl.Start.String(),
			Available: sl.Available,
			IsPast:    sl.Past,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathID(w, r, "id", "doctor id")
	if !ok {
		return
	}

	start, err := time.ParseInLocation(dateTimeFormat, r.URL.Query().Get("start"), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "start must be YYYY-MM-DDTHH:MM")
		return
	}

	duration := 0
	if raw := r.URL.Query().Get("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be an integer of minutes")
			return
		}
	}

	available, err := h.svc.CheckAvailability(r.Context(), doctorID, start, duration)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if duration == 0 {
		duration = scheduling.DefaultSlotMinutes
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		DoctorID:        doctorID,
		Start:           start.Format(dateTimeFormat),
		DurationMinutes: duration,
		Available:       available,
	})
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	start, err := time.ParseInLocation(dateTimeFormat, req.Start, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "start must be YYYY-MM-DDTHH:MM")
		return
	}

	appt, err := h.svc.Book(r.Context(), scheduling.BookingRequest{
		DoctorID:        req.DoctorID,
		PatientID:       req.PatientID,
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
		Notes:           req.Notes,
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "appointment id")
	if !ok {
		return
	}

	appt, err := h.svc.GetAppointment(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "appointment id")
	if !ok {
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	appt, err := h.svc.Transition(r.Context(), id, req.Status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) DayBookings(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathID(w, r, "id", "doctor id")
	if !ok {
		return
	}

	day, err := time.ParseInLocation(dateFormat, r.URL.Query().Get("date"), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	appts, err := h.svc.DayBookings(r.Context(), doctorID, day)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		resp = append(resp, toAppointmentResponse(&appts[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

func pathID(w http.ResponseWriter, r *http.Request, param, label string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_id", label+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	var storeErr *scheduling.StoreError

	switch {
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, scheduling.ErrInvalidDuration):
		writeError(w, http.StatusBadRequest, "invalid_duration", err.Error())
	case errors.Is(err, scheduling.ErrUnknownStatus):
		writeError(w, http.StatusUnprocessableEntity, "unknown_status", err.Error())
	case errors.Is(err, scheduling.ErrTerminalStatus):
		writeError(w, http.StatusUnprocessableEntity, "invalid_transition", err.Error())
	case errors.As(err, &storeErr), errors.Is(err, lock.ErrLockNotAcquired):
		// Retryable; never presented as "slot taken".
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "appointment store is temporarily unavailable, retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
