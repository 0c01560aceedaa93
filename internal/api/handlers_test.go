package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/appointment-engine/internal/config"
	"github.com/clinicdesk/appointment-engine/internal/lock"
	"github.com/clinicdesk/appointment-engine/internal/scheduling"
)

// -- In-memory collaborators --

type fakeStore struct {
	nextID int64
	appts  map[int64]*scheduling.Appointment
}

func newFakeStore() *fakeStore {
	return &fakeStore{appts: make(map[int64]*scheduling.Appointment)}
}

func (f *fakeStore) forDay(doctorID int64, day time.Time, activeOnly bool) []scheduling.Appointment {
	var result []scheduling.Appointment
	for _, a := range f.appts {
		if a.DoctorID != doctorID || !a.Date.Equal(day) {
			continue
		}
		if activeOnly && !a.Status.IsActive() {
			continue
		}
		result = append(result, *a)
	}
	return result
}

func (f *fakeStore) GetActiveAppointments(_ context.Context, doctorID int64, day time.Time) ([]scheduling.Appointment, error) {
	return f.forDay(doctorID, day, true), nil
}

func (f *fakeStore) ListAppointmentsForDay(_ context.Context, doctorID int64, day time.Time) ([]scheduling.Appointment, error) {
	return f.forDay(doctorID, day, false), nil
}

func (f *fakeStore) GetAppointmentByID(_ context.Context, id int64) (*scheduling.Appointment, error) {
	a, ok := f.appts[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) InsertAppointment(_ context.Context, appt scheduling.Appointment) (*scheduling.Appointment, error) {
	f.nextID++
	appt.ID = f.nextID
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	f.appts[appt.ID] = &appt
	cp := appt
	return &cp, nil
}

func (f *fakeStore) UpdateAppointmentStatus(_ context.Context, id int64, from, to scheduling.Status) (*scheduling.Appointment, error) {
	a, ok := f.appts[id]
	if !ok || a.Status != from {
		return nil, scheduling.ErrAppointmentNotFound
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

type fakeDirectory struct{}

func (fakeDirectory) GetDoctorByID(_ context.Context, id int64) (*scheduling.Doctor, error) {
	if id != 1 {
		return nil, scheduling.ErrDoctorNotFound
	}
	return &scheduling.Doctor{ID: 1, Name: "Dr. Asha Rao", Specialty: "Cardiology"}, nil
}

func (fakeDirectory) GetPatientByID(_ context.Context, id int64) (*scheduling.Patient, error) {
	if id != 10 {
		return nil, scheduling.ErrPatientNotFound
	}
	return &scheduling.Patient{ID: 10, Name: "Priya Nair"}, nil
}

func (fakeDirectory) GetDoctorWorkingHours(_ context.Context, id int64) (*scheduling.AvailabilityWindow, error) {
	if id != 1 {
		return nil, scheduling.ErrDoctorNotFound
	}
	return nil, nil // fall back to the default window
}

func setupTestRouter() http.Handler {
	cfg := config.Config{SlotMinutes: 30, DurationMinutes: 30}
	svc := scheduling.NewService(newFakeStore(), fakeDirectory{}, lock.NewLocalDoctorLocker(), cfg, zerolog.Nop(), nil)
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Get("/doctors/{id}/slots", h.ListSlots)
	r.Get("/doctors/{id}/availability", h.CheckAvailability)
	r.Get("/doctors/{id}/appointments", h.DayBookings)
	r.Post("/appointments", h.Book)
	r.Get("/appointments/{id}", h.GetAppointment)
	r.Post("/appointments/{id}/status", h.Transition)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func bookBody(start string) map[string]any {
	return map[string]any{
		"doctor_id":        1,
		"patient_id":       10,
		"start":            start,
		"duration_minutes": 30,
		"reason":           "checkup",
		"created_by":       "reception",
	}
}

// -- Booking endpoint --

func TestBookEndpoint(t *testing.T) {
	router := setupTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/appointments", bookBody("2025-03-10T09:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "APT000001", resp.Code)
	assert.Equal(t, "scheduled", resp.Status)
	assert.Equal(t, "09:00", resp.Start)
	assert.Equal(t, "09:30", resp.End)
	assert.Equal(t, "Dr. Asha Rao", resp.DoctorName)
}

func TestBookEndpointConflict(t *testing.T) {
	router := setupTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/appointments", bookBody("2025-03-10T09:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/appointments", bookBody("2025-03-10T09:15"))
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "slot_already_booked", resp.Error)
}

func TestBookEndpointValidation(t *testing.T) {
	router := setupTestRouter()

	tests := []struct {
		name     string
		mutate   func(map[string]any)
		wantCode string
	}{
		{"missing created_by", func(b map[string]any) { delete(b, "created_by") }, "invalid_request"},
		{"missing reason", func(b map[string]any) { delete(b, "reason") }, "invalid_request"},
		{"zero doctor id", func(b map[string]any) { b["doctor_id"] = 0 }, "invalid_request"},
		{"negative duration", func(b map[string]any) { b["duration_minutes"] = -5 }, "invalid_request"},
		{"bad start format", func(b map[string]any) { b["start"] = "tomorrow at nine" }, "invalid_start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bookBody("2025-03-10T09:00")
			tt.mutate(body)

			rec := doJSON(t, router, http.MethodPost, "/appointments", body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
		})
	}
}

func TestBookEndpointUnknownDoctor(t *testing.T) {
	router := setupTestRouter()

	body := bookBody("2025-03-10T09:00")
	body["doctor_id"] = 42

	rec := doJSON(t, router, http.MethodPost, "/appointments", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// -- Transition endpoint --

func TestTransitionEndpoint(t *testing.T) {
	router := setupTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/appointments", bookBody("2025-03-10T09:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var appt AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &appt))

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/appointments/%d/status", appt.ID), map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Terminal now; further transitions are rejected.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/appointments/%d/status", appt.ID), map[string]any{"status": "confirmed"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_transition", resp.Error)
}

func TestTransitionEndpointUnknownStatus(t *testing.T) {
	router := setupTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/appointments", bookBody("2025-03-10T09:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/appointments/1/status", map[string]any{"status": "done"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unknown_status", resp.Error)
}

func TestTransitionEndpointNotFound(t *testing.T) {
	router := setupTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/appointments/404/status", map[string]any{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// -- Read endpoints --

func TestListSlotsEndpoint(t *testing.T) {
	router := setupTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/doctors/1/slots?date=2025-03-10&granularity=30", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var slots []SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	require.Len(t, slots, 17)
	assert.Equal(t, "09:00", slots[0].Start)
	assert.Equal(t, "17:00", slots[len(slots)-1].Start)
	for _, sl := range slots {
		assert.True(t, sl.Available)
	}
}

func TestListSlotsEndpointBadDate(t *testing.T) {
	router := setupTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/doctors/1/slots?date=next-monday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	router := setupTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/doctors/1/availability?start=2025-03-10T09:00&duration=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var avail AvailabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avail))
	assert.True(t, avail.Available)

	rec = doJSON(t, router, http.MethodPost, "/appointments", bookBody("2025-03-10T09:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/doctors/1/availability?start=2025-03-10T09:00&duration=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avail))
	assert.False(t, avail.Available)
}

func TestGetAppointmentEndpoint(t *testing.T) {
	router := setupTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/appointments/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/appointments", bookBody("2025-03-10T10:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/appointments/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "10:00", resp.Start)
	assert.Equal(t, "checkup", resp.Reason)
}

func TestDayBookingsEndpoint(t *testing.T) {
	router := setupTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/appointments", bookBody("2025-03-10T09:00"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/appointments", bookBody("2025-03-10T11:00"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/doctors/1/appointments?date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var day []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	assert.Len(t, day, 2)
}
