package api

import (
	"time"

	"github.com/clinicdesk/appointment-engine/internal/scheduling"
)

// Wall clock formats used on the wire. Times are clinic-local and naive; the
// engine never does timezone math.
const (
	dateFormat     = "2006-01-02"
	dateTimeFormat = "2006-01-02T15:04"
)

type BookAppointmentRequest struct {
	DoctorID        int64  `json:"doctor_id" validate:"required,gt=0"`
	PatientID       int64  `json:"patient_id" validate:"required,gt=0"`
	Start           string `json:"start" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0"`
	Reason          string `json:"reason" validate:"required,max=500"`
	Notes           string `json:"notes" validate:"max=2000"`
	CreatedBy       string `json:"created_by" validate:"required,max=100"`
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type AppointmentResponse struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	DoctorID        int64     `json:"doctor_id"`
	PatientID       int64     `json:"patient_id"`
	DoctorName      string    `json:"doctor_name"`
	DoctorSpecialty string    `json:"doctor_specialty"`
	Date            string    `json:"date"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason"`
	Notes           string    `json:"notes,omitempty"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		Code:            a.Code(),
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		DoctorName:      a.DoctorName,
		DoctorSpecialty: a.DoctorSpecialty,
		Date:            a.Date.Format(dateFormat),
		Start:           a.Start.String(),
		End:             a.End().String(),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		Reason:          a.Reason,
		Notes:           a.Notes,
		CreatedBy:       a.CreatedBy,
		CreatedAt:       a.CreatedAt,
	}
}

type SlotResponse struct {
	Start     string `json:"start"`
	Available bool   `json:"available"`
	IsPast    bool   `json:"is_past"`
}

type AvailabilityResponse struct {
	DoctorID        int64  `json:"doctor_id"`
	Start           string `json:"start"`
	DurationMinutes int    `json:"duration_minutes"`
	Available       bool   `json:"available"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
