package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"planner/internal/calendar"
	"planner/internal/config"
	"planner/internal/model"
	"planner/internal/store"
	"planner/internal/store/jsonfile"
)

// Wednesday 8 October 2025.
var fixedNow = time.Date(2025, time.October, 8, 9, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T, st store.Store) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Title = "Room 12"
	cfg.Owner = "Ms. Rivera"
	cfg.Capture.OutputPath = filepath.Join(t.TempDir(), "preview.png")
	srv, err := NewServer(cfg, st, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func openStore(t *testing.T) (*jsonfile.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events_data.json")
	st, err := jsonfile.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st, path
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		if strings.HasPrefix(body, "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestEventCRUD(t *testing.T) {
	st, _ := openStore(t)
	h := newTestServer(t, st).Handler()

	rec := do(t, h, http.MethodPost, "/api/events", `{"title":"Parents evening","date":"2025-10-08","notes":"hall"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	created := decode[model.Event](t, rec)
	if created.ID == "" || created.Title != "Parents evening" {
		t.Fatalf("created = %+v", created)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/events/"+created.ID {
		t.Fatalf("Location = %q", loc)
	}

	rec = do(t, h, http.MethodPut, "/api/events/"+created.ID, `{"title":"Parents evening","date":"2025-10-09","notes":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body=%s", rec.Code, rec.Body)
	}
	if got := decode[model.Event](t, rec); got.Date != "2025-10-09" || got.ID != created.ID {
		t.Fatalf("updated = %+v", got)
	}

	rec = do(t, h, http.MethodPost, "/api/events", "title=Staff+meeting&date=2025-10-07")
	if rec.Code != http.StatusCreated {
		t.Fatalf("form create status = %d body=%s", rec.Code, rec.Body)
	}
	form := decode[model.Event](t, rec)

	rec = do(t, h, http.MethodGet, "/api/events", "")
	if list := decode[[]model.Event](t, rec); len(list) != 2 || list[0].ID != form.ID {
		t.Fatalf("list = %+v", list)
	}

	for _, id := range []string{created.ID, form.ID} {
		rec = do(t, h, http.MethodDelete, "/api/events/"+id, "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("delete status = %d", rec.Code)
		}
	}
	rec = do(t, h, http.MethodGet, "/api/events/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/events", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list body = %q", rec.Body)
	}
}

func TestEventValidationErrors(t *testing.T) {
	st, _ := openStore(t)
	h := newTestServer(t, st).Handler()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"empty title", http.MethodPost, "/api/events", `{"title":" ","date":"2025-10-08"}`, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/events", `{"title":"x","date":"08/10/2025"}`, http.StatusBadRequest},
		{"not json", http.MethodPost, "/api/events", `{title`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/events", `{"title":"x","date":"2025-10-08","when":"now"}`, http.StatusBadRequest},
		{"update missing", http.MethodPut, "/api/events/nope", `{"title":"x","date":"2025-10-08"}`, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/events/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d body=%s", rec.Code, tt.want, rec.Body)
			}
			if body := decode[map[string]string](t, rec); body["error"] == "" {
				t.Fatalf("missing error message: %s", rec.Body)
			}
		})
	}
}

func seed(t *testing.T, st store.Store, title, date string) string {
	t.Helper()
	id, err := st.Add(context.Background(), title, date, "")
	if err != nil {
		t.Fatalf("seed %s: %v", title, err)
	}
	return id
}

func TestWeekAPI(t *testing.T) {
	st, _ := openStore(t)
	seed(t, st, "Assembly", "2025-10-08")
	seed(t, st, "Weekend fair", "2025-10-11")
	seed(t, st, "Trip", "2025-10-14")
	h := newTestServer(t, st).Handler()

	rec := do(t, h, http.MethodGet, "/api/week", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	v := decode[calendar.View](t, rec)
	if v.Start.String() != "2025-10-06" || v.End.String() != "2025-10-10" || len(v.Days) != 5 {
		t.Fatalf("week = %s..%s days=%d", v.Start, v.End, len(v.Days))
	}
	if evs, _ := v.Bucket("2025-10-08"); len(evs) != 1 || evs[0].Title != "Assembly" {
		t.Fatalf("wednesday bucket = %+v", evs)
	}
	if v.EventCount() != 1 {
		t.Fatalf("weekend event leaked into work week: count=%d", v.EventCount())
	}
	// The upcoming window starts the day after Friday, so it picks up the
	// weekend too.
	if len(v.Upcoming) != 2 || v.Upcoming[0].Title != "Weekend fair" || v.Upcoming[1].Title != "Trip" {
		t.Fatalf("upcoming = %+v", v.Upcoming)
	}

	rec = do(t, h, http.MethodGet, "/api/week/2025-10-20", "")
	if v := decode[calendar.View](t, rec); v.Start.String() != "2025-10-20" || v.Prev.Date.String() != "2025-10-13" {
		t.Fatalf("explicit week = %s prev=%s", v.Start, v.Prev.Date)
	}
}

func TestViewRequestErrors(t *testing.T) {
	st, _ := openStore(t)
	h := newTestServer(t, st).Handler()

	for _, target := range []string{
		"/api/week/2025-13-01",
		"/api/week/next-tuesday",
		"/api/month/2025/13",
		"/api/month/2025/0",
		"/api/month/twenty/1",
		"/api/year/0",
		"/api/year/10000",
	} {
		rec := do(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestMonthAndYearPages(t *testing.T) {
	st, _ := openStore(t)
	seed(t, st, "Mock exams", "2025-02-28")
	seed(t, st, "Spring term", "2025-03-03")
	h := newTestServer(t, st).Handler()

	rec := do(t, h, http.MethodGet, "/month/2025/2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("month status = %d body=%s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{"February 2025", "Mock exams", "/month/2025/1", "/month/2025/3", "Spring term"} {
		if !strings.Contains(body, want) {
			t.Errorf("month page missing %q", want)
		}
	}

	rec = do(t, h, http.MethodGet, "/month/2025/2?format=json", "")
	v := decode[calendar.View](t, rec)
	if len(v.Days)%7 != 0 || v.Days[0].Date.String() != "2025-01-27" {
		t.Fatalf("month grid starts %s len=%d", v.Days[0].Date, len(v.Days))
	}

	rec = do(t, h, http.MethodGet, "/year/2025", "")
	body = rec.Body.String()
	for _, want := range []string{"February", "Mock exams", "/year/2024", "/year/2026"} {
		if !strings.Contains(body, want) {
			t.Errorf("year page missing %q", want)
		}
	}
}

func TestBareViewRoutesRedirect(t *testing.T) {
	st, _ := openStore(t)
	h := newTestServer(t, st).Handler()

	tests := map[string]string{
		"/week":                 "/week/2025-10-08",
		"/week?date=2025-12-25": "/week/2025-12-25",
		"/month":                "/month/2025/10",
		"/year":                 "/year/2025",
	}
	for target, want := range tests {
		rec := do(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != want {
			t.Errorf("%s: status=%d location=%q, want %q", target, rec.Code, rec.Header().Get("Location"), want)
		}
	}
}

func TestMalformedStoredDateIsSkipped(t *testing.T) {
	st, path := openStore(t)
	body := `[
	  {"id": "ok", "title": "Assembly", "date": "2025-10-07", "notes": ""},
	  {"id": "bad", "title": "Broken", "date": "2025-02-30", "notes": ""}
	]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	h := newTestServer(t, st).Handler()

	rec := do(t, h, http.MethodGet, "/api/week/2025-10-07", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	v := decode[calendar.View](t, rec)
	if v.EventCount() != 1 || len(v.Skipped) != 1 || v.Skipped[0].EventID != "bad" {
		t.Fatalf("count=%d skipped=%+v", v.EventCount(), v.Skipped)
	}

	rec = do(t, h, http.MethodGet, "/week/2025-10-07", "")
	if !strings.Contains(rec.Body.String(), "1 event(s) hidden") {
		t.Fatalf("week page does not report the skipped event")
	}
}

func TestNonStringStoredDateIsSkippedInEveryView(t *testing.T) {
	st, path := openStore(t)
	body := `[
	  {"id": "ok", "title": "Assembly", "date": "2025-10-07", "notes": ""},
	  {"id": "bad", "title": "Imported", "date": 20251008, "notes": ""}
	]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	h := newTestServer(t, st).Handler()

	for _, target := range []string{"/api/week/2025-10-07", "/api/month/2025/10", "/api/year/2025"} {
		rec := do(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d body=%s", target, rec.Code, rec.Body)
		}
		v := decode[calendar.View](t, rec)
		if v.EventCount() != 1 || len(v.Skipped) != 1 || v.Skipped[0].Date != "20251008" {
			t.Fatalf("%s: count=%d skipped=%+v", target, v.EventCount(), v.Skipped)
		}
	}
}

type brokenStore struct{ store.Store }

func (brokenStore) LoadAll(context.Context) ([]model.Event, error) {
	return nil, store.Unavailable("read", errors.New("disk on fire"))
}

func TestStoreUnavailable(t *testing.T) {
	h := newTestServer(t, brokenStore{}).Handler()

	for _, target := range []string{"/api/week", "/api/month/2025/2", "/api/year/2025", "/api/events"} {
		rec := do(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", target, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "disk on fire") {
			t.Errorf("%s: leaked internal error: %s", target, rec.Body)
		}
	}
	// Request validation runs before the store is read.
	if rec := do(t, h, http.MethodGet, "/api/month/2025/13", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid month status = %d, want 400", rec.Code)
	}
}

func TestFormFlow(t *testing.T) {
	st, _ := openStore(t)
	h := newTestServer(t, st).Handler()

	rec := do(t, h, http.MethodPost, "/add", "title=Sports+day&date=2025-10-10&notes=field")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("add status = %d body=%s", rec.Code, rec.Body)
	}
	events, err := st.LoadAll(context.Background())
	if err != nil || len(events) != 1 {
		t.Fatalf("events = %+v err=%v", events, err)
	}
	id := events[0].ID

	rec = do(t, h, http.MethodGet, "/", "")
	if !strings.Contains(rec.Body.String(), "Sports day") || !strings.Contains(rec.Body.String(), `value="2025-10-08"`) {
		t.Fatalf("index page = %s", rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/edit/"+id, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Sports day") {
		t.Fatalf("edit page status=%d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/edit/"+id, "title=Sports+day&date=not-a-date")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad edit status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/delete/"+id, "")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec = do(t, h, http.MethodGet, "/edit/"+id, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("edit after delete status = %d", rec.Code)
	}
}

func TestPrintWeekAndICS(t *testing.T) {
	st, _ := openStore(t)
	seed(t, st, "Harvest festival", "2025-10-12")
	seed(t, st, "Report deadline", "2025-10-15")
	h := newTestServer(t, st).Handler()

	rec := do(t, h, http.MethodGet, "/print/week/2025-10-08", "")
	body := rec.Body.String()
	for _, want := range []string{`data-ready="true"`, "Room 12", "Ms. Rivera", "Harvest festival", "Report deadline"} {
		if !strings.Contains(body, want) {
			t.Errorf("print page missing %q", want)
		}
	}

	rec = do(t, h, http.MethodGet, "/calendar.ics", "")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("content type = %q", ct)
	}
	for _, want := range []string{"BEGIN:VCALENDAR", "SUMMARY:Harvest festival", "DTSTART;VALUE=DATE:20251012"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("ics missing %q", want)
		}
	}
}

func TestPrintPlannerShowsTimetable(t *testing.T) {
	st, _ := openStore(t)
	seed(t, st, "Parents evening", "2025-10-07")
	seed(t, st, "Weekend fair", "2025-10-11")
	srv := newTestServer(t, st)
	srv.cfg.WeeklySlots = map[string][]config.Slot{
		"Monday":   {{Time: "09:00", Label: "Phonics"}, {Time: "10:30", Label: "Maths"}},
		"Tuesday":  {{Time: "13:00", Label: "Swimming"}},
		"Saturday": {{Time: "10:00", Label: "Club"}},
	}
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/print/planner/2025-10-08", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{`data-ready="true"`, "Room 12", "Ms. Rivera", "Monday 6 Oct", "Friday 10 Oct", "Phonics", "Maths", "Swimming", "Parents evening"} {
		if !strings.Contains(body, want) {
			t.Errorf("planner page missing %q", want)
		}
	}
	// The work week stops on Friday.
	for _, unwanted := range []string{"Saturday", "Club", "Weekend fair"} {
		if strings.Contains(body, unwanted) {
			t.Errorf("planner page should not contain %q", unwanted)
		}
	}
	if strings.Index(body, "Phonics") > strings.Index(body, "Maths") {
		t.Error("slots should keep their configured order")
	}

	if rec := do(t, h, http.MethodGet, "/print/planner/2025-13-01", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rec.Code)
	}
}

func TestYearPageHidesNavigationPastRange(t *testing.T) {
	st, _ := openStore(t)
	h := newTestServer(t, st).Handler()

	body := do(t, h, http.MethodGet, "/year/1", "").Body.String()
	if strings.Contains(body, `"/year/0"`) || !strings.Contains(body, "/year/2") {
		t.Errorf("year 1 navigation wrong:\n%s", body)
	}
	body = do(t, h, http.MethodGet, "/year/9999", "").Body.String()
	if strings.Contains(body, "/year/10000") || !strings.Contains(body, "/year/9998") {
		t.Errorf("year 9999 navigation wrong:\n%s", body)
	}
}

func TestPreviewAndHealth(t *testing.T) {
	st, _ := openStore(t)
	srv := newTestServer(t, st)
	h := srv.Handler()

	if rec := do(t, h, http.MethodGet, "/preview.png", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("preview before capture status = %d", rec.Code)
	}
	if err := os.WriteFile(srv.cfg.Capture.OutputPath, []byte("\x89PNG"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, h, http.MethodGet, "/preview.png", ""); rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body)
	}
}
