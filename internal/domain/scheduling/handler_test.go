package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vidaplus/hms/internal/platform/apperr"
	"github.com/vidaplus/hms/internal/platform/auth"
	"github.com/vidaplus/hms/internal/platform/validate"
)

func newTestServer(t *testing.T) (*echo.Echo, *fixture) {
	t.Helper()
	f := newFixture()

	e := echo.New()
	e.Validator = validate.New()
	e.HTTPErrorHandler = apperr.ErrorHandler(zerolog.Nop())

	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))
	return e, f
}

func doJSON(e *echo.Echo, method, path, body, role, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if role != "" {
		ctx := req.Context()
		ctx = context.WithValue(ctx, auth.UserIDKey, userID)
		ctx = context.WithValue(ctx, auth.UserRoleKey, role)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWeeklyScheduleEndpoint(t *testing.T) {
	e, f := newTestServer(t)

	body := `{"schedule":[{"weekday":1,"start_time":"08:00","end_time":"17:00","slot_minutes":30}]}`
	rec := doJSON(e, http.MethodPut, "/api/v1/professionals/me/weekly-schedule", body,
		auth.RolePatient, f.patientUser.String())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("patient setting grid: status = %d, want 403", rec.Code)
	}

	rec = doJSON(e, http.MethodPut, "/api/v1/professionals/me/weekly-schedule", body,
		auth.RoleProfessional, f.profUser.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	bad := `{"schedule":[{"weekday":1,"start_time":"17:00","end_time":"08:00"}]}`
	rec = doJSON(e, http.MethodPut, "/api/v1/professionals/me/weekly-schedule", bad,
		auth.RoleProfessional, f.profUser.String())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted hours: status = %d, want 400", rec.Code)
	}
}

func TestFreeSlotsEndpoint(t *testing.T) {
	e, f := newTestServer(t)
	f.setAllWeekGrid(t)

	base := "/api/v1/professionals/" + f.prof.ID.String() + "/free-slots"

	rec := doJSON(e, http.MethodGet, base, "", auth.RolePatient, f.patientUser.String())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing date: status = %d, want 400", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, base+"?date=07/07/2025", "", auth.RolePatient, f.patientUser.String())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date format: status = %d, want 400", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, base+"?date=2025-07-07", "", auth.RolePatient, f.patientUser.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var res struct {
		Date  string      `json:"date"`
		Slots []time.Time `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Slots) != 18 {
		t.Fatalf("slots = %d, want 18", len(res.Slots))
	}
}

func TestBookingEndpoint(t *testing.T) {
	e, f := newTestServer(t)
	f.setAllWeekGrid(t)

	body := `{"professional_id":"` + f.prof.ID.String() + `","start_time":"2025-07-07T09:00:00Z"}`
	rec := doJSON(e, http.MethodPost, "/api/v1/appointments", body,
		auth.RolePatient, f.patientUser.String())
	if rec.Code != http.StatusCreated {
		t.Fatalf("book: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = doJSON(e, http.MethodPost, "/api/v1/appointments", body,
		auth.RolePatient, f.patientUser.String())
	if rec.Code != http.StatusConflict {
		t.Fatalf("double book: status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not available") {
		t.Fatalf("conflict body = %s", rec.Body)
	}
}

func TestCancelEndpoint(t *testing.T) {
	e, f := newTestServer(t)
	f.setAllWeekGrid(t)
	ctx := context.Background()

	appt, err := f.svc.Book(ctx, f.patientUser, auth.RolePatient, BookInput{
		ProfessionalID: f.prof.ID, StartTime: monday.Add(9 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	path := "/api/v1/appointments/" + appt.ID.String() + "/cancel"
	rec := doJSON(e, http.MethodPost, path, `{"reason":"trip"}`,
		auth.RolePatient, f.patientUser.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = doJSON(e, http.MethodPost, path, `{"reason":"again"}`,
		auth.RolePatient, f.patientUser.String())
	if rec.Code != http.StatusConflict {
		t.Fatalf("double cancel: status = %d, want 409", rec.Code)
	}
}

func TestRecordEndpoint(t *testing.T) {
	e, f := newTestServer(t)
	f.setAllWeekGrid(t)
	ctx := context.Background()

	appt, err := f.svc.Book(ctx, f.patientUser, auth.RolePatient, BookInput{
		ProfessionalID: f.prof.ID, StartTime: monday.Add(9 * time.Hour),
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	path := "/api/v1/appointments/" + appt.ID.String() + "/record"
	body := `{"notes":"all good","attachments":[{"filename":"exam.pdf","doc_type":"EXAM"}]}`

	rec := doJSON(e, http.MethodPut, path, body, auth.RolePatient, f.patientUser.String())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("patient saving record: status = %d, want 403", rec.Code)
	}

	rec = doJSON(e, http.MethodPut, path, body, auth.RoleProfessional, f.profUser.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("save record: status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = doJSON(e, http.MethodGet, path, "", auth.RolePatient, f.patientUser.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("patient reading own record: status = %d", rec.Code)
	}
	var got ClinicalRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Notes != "all good" || len(got.Attachments) != 1 {
		t.Fatalf("record = %+v", got)
	}
}

func TestAgendaEndpoint(t *testing.T) {
	e, f := newTestServer(t)
	f.setAllWeekGrid(t)

	rec := doJSON(e, http.MethodGet, "/api/v1/professionals/me/agenda", "",
		auth.RoleProfessional, f.profUser.String())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing range: status = %d, want 400", rec.Code)
	}

	rec = doJSON(e, http.MethodGet,
		"/api/v1/professionals/me/agenda?from=2025-07-07&to=2025-07-08", "",
		auth.RoleProfessional, f.profUser.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("agenda: status = %d, body = %s", rec.Code, rec.Body)
	}
	var days []DayAgenda
	if err := json.Unmarshal(rec.Body.Bytes(), &days); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("days = %d, want 2", len(days))
	}
}

func TestListAppointmentsScoping(t *testing.T) {
	e, f := newTestServer(t)
	f.setAllWeekGrid(t)
	ctx := context.Background()

	if _, err := f.svc.Book(ctx, f.patientUser, auth.RolePatient, BookInput{
		ProfessionalID: f.prof.ID, StartTime: monday.Add(9 * time.Hour),
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	for _, tc := range []struct {
		role   string
		userID string
		want   int
	}{
		{auth.RolePatient, f.patientUser.String(), 1},
		{auth.RoleProfessional, f.profUser.String(), 1},
		{auth.RoleAdmin, f.patientUser.String(), 1},
	} {
		rec := doJSON(e, http.MethodGet, "/api/v1/appointments", "", tc.role, tc.userID)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s list: status = %d", tc.role, rec.Code)
		}
		var res struct {
			Total int `json:"total"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if res.Total != tc.want {
			t.Fatalf("%s total = %d, want %d", tc.role, res.Total, tc.want)
		}
	}
}
