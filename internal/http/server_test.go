package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nozze/internal/core"
	"nozze/internal/log"
	"nozze/internal/metrics"
	"nozze/internal/middleware/ratelimit"
	"nozze/internal/services"
	"nozze/internal/storage"
)

type testEnv struct {
	srv     *Server
	repo    *storage.SQLiteRepository
	wedding core.Wedding
}

func newTestEnv(t *testing.T, limit ratelimit.Config) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "nozze.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	m := metrics.New()
	srv, err := NewServer(Options{
		Addr:      ":0",
		Storage:   repo,
		Guests:    services.NewGuestService(repo, nil),
		Seating:   services.NewSeatingService(repo, nil, m),
		Budget:    services.NewBudgetService(repo, nil, m),
		Metrics:   m,
		Logger:    log.New(log.Config{Level: slog.LevelError, Format: log.FormatText, Output: io.Discard}),
		RateLimit: limit,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	if srv.templates == nil {
		t.Fatal("templates failed to parse")
	}

	w, err := repo.CreateWedding(context.Background(), core.Wedding{
		OwnerEmail: "sposi@example.com", PartnerOne: "Anna", PartnerTwo: "Luca",
		TotalBudget: core.Money{Cents: 2_000_000},
	})
	if err != nil {
		t.Fatalf("create wedding: %v", err)
	}
	return &testEnv{srv: srv, repo: repo, wedding: w}
}

func (e *testEnv) path(format string, args ...any) string {
	return fmt.Sprintf("/weddings/%d", e.wedding.ID) + fmt.Sprintf(format, args...)
}

func (e *testEnv) get(t *testing.T, path string, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) guest(t *testing.T, name, group string, rsvp core.RSVPStatus) core.Guest {
	t.Helper()
	g, err := e.repo.CreateGuest(context.Background(), core.Guest{
		WeddingID: e.wedding.ID, FirstName: name, Group: group, RSVPStatus: rsvp,
	})
	if err != nil {
		t.Fatalf("create guest: %v", err)
	}
	return g
}

func (e *testEnv) table(t *testing.T, name string, capacity, order int) core.Table {
	t.Helper()
	tb, err := e.repo.CreateTable(context.Background(), core.Table{
		WeddingID: e.wedding.ID, Name: name, Capacity: capacity, Order: order,
	})
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return tb
}

func triggers(t *testing.T, rr *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := rr.Header().Get("HX-Trigger")
	if raw == "" {
		t.Fatal("missing HX-Trigger header")
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode HX-Trigger %q: %v", raw, err)
	}
	return out
}

func TestHealthReadyAndMetrics(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})

	rr := e.get(t, "/healthz", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("response has no X-Request-ID")
	}

	rr = e.get(t, "/readyz", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz status = %d: %s", rr.Code, rr.Body)
	}
	var ready struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&ready); err != nil {
		t.Fatalf("decode readyz: %v", err)
	}
	if ready.Status != "ready" || ready.Checks["database"] != "ok" || ready.Checks["templates"] != "ok" {
		t.Errorf("readyz = %+v", ready)
	}

	rr = e.get(t, "/metrics", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "nozze_http_requests_total") {
		t.Error("metrics output missing nozze_http_requests_total")
	}
}

func TestSecurityHeadersPresent(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	rr := e.get(t, "/", false)
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestCreateWedding(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})

	rr := e.post(t, "/weddings", url.Values{
		"partner_one":  {"Giulia"},
		"partner_two":  {"Marco"},
		"owner_email":  {"giulia@example.com"},
		"date":         {"2027-06-12"},
		"total_budget": {"25000"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	if _, ok := triggers(t, rr)[EventWeddingsChanged]; !ok {
		t.Error("missing weddings:changed trigger")
	}
	redirect := rr.Header().Get("HX-Redirect")
	if !strings.HasPrefix(redirect, "/weddings/") {
		t.Fatalf("HX-Redirect = %q", redirect)
	}

	page := e.get(t, redirect, false)
	if page.Code != http.StatusOK {
		t.Fatalf("wedding page status = %d: %s", page.Code, page.Body)
	}
	if !strings.Contains(page.Body.String(), "Giulia &amp; Marco") {
		t.Error("wedding page missing couple name")
	}

	list := e.get(t, "/", false)
	if !strings.Contains(list.Body.String(), "Giulia &amp; Marco") {
		t.Error("index does not list the new wedding")
	}
}

func TestCreateWeddingValidation(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})

	tests := []struct {
		name string
		form url.Values
		msg  string
	}{
		{"missing email", url.Values{"partner_one": {"Giulia"}}, "Email non valida"},
		{"no names", url.Values{"owner_email": {"a@example.com"}}, "Il nome è obbligatorio"},
		{"bad budget", url.Values{"partner_one": {"Giulia"}, "owner_email": {"a@example.com"}, "total_budget": {"tanti"}}, "Importo non valido"},
		{"bad date", url.Values{"partner_one": {"Giulia"}, "owner_email": {"a@example.com"}, "date": {"12/06/2027"}}, "Valore non valido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.post(t, "/weddings", tt.form)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.msg) {
				t.Errorf("body = %q, want %q", rr.Body, tt.msg)
			}
		})
	}
}

func TestUnknownRecordsAreNotFound(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})

	for _, path := range []string{"/weddings/999", "/weddings/999/guests", "/weddings/abc/seating"} {
		if rr := e.get(t, path, false); rr.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rr.Code)
		}
	}

	other, err := e.repo.CreateWedding(context.Background(), core.Wedding{
		OwnerEmail: "altri@example.com", PartnerOne: "Sara",
	})
	if err != nil {
		t.Fatalf("create wedding: %v", err)
	}
	g, err := e.repo.CreateGuest(context.Background(), core.Guest{
		WeddingID: other.ID, FirstName: "Pietro", RSVPStatus: core.RSVPPending,
	})
	if err != nil {
		t.Fatalf("create guest: %v", err)
	}
	rr := e.post(t, e.path("/guests/%d/rsvp", g.ID), url.Values{"rsvp_status": {"confirmed"}})
	if rr.Code != http.StatusNotFound {
		t.Errorf("cross-wedding rsvp status = %d, want 404", rr.Code)
	}
	got, _ := e.repo.GetGuest(context.Background(), g.ID)
	if got.RSVPStatus != core.RSVPPending {
		t.Errorf("guest of another wedding was modified: %s", got.RSVPStatus)
	}
}

func TestPagesRender(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	ctx := context.Background()

	tb := e.table(t, "Sposi", 8, 1)
	g := e.guest(t, "Anna", "Famiglia", core.RSVPConfirmed)
	if err := e.repo.SetGuestTable(ctx, g.ID, &tb.ID); err != nil {
		t.Fatalf("seat guest: %v", err)
	}
	e.guest(t, "Paolo", "Amici", core.RSVPConfirmed)
	e.guest(t, "Marta", "", core.RSVPMaybe)

	v, err := e.repo.CreateVendor(ctx, core.Vendor{
		WeddingID: e.wedding.ID, Name: "Fiori & Co", Category: "Fiori", Status: core.VendorBooked,
	})
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	est := core.Money{Cents: 120_000}
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	item, err := e.repo.CreateBudgetItem(ctx, core.BudgetItem{
		WeddingID: e.wedding.ID, VendorID: &v.ID, Category: "Fiori", EstimatedCost: &est,
		Status: core.PaymentPending, DueDate: &due,
	})
	if err != nil {
		t.Fatalf("create budget item: %v", err)
	}
	if _, err := e.repo.CreateTask(ctx, core.Task{
		WeddingID: e.wedding.ID, Title: "Scegliere le bomboniere", Priority: core.PriorityHigh, DueDate: &due,
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	pages := []struct {
		path string
		want string
	}{
		{e.path(""), "Anna &amp; Luca"},
		{e.path("/dashboard"), "Invitati"},
		{e.path("/guests"), "Paolo"},
		{e.path("/guests?rsvp=maybe"), "Marta"},
		{e.path("/seating"), "Sposi"},
		{e.path("/budget"), "Fiori"},
		{e.path("/budget?status=pending&category=Fiori"), "Fiori"},
		{e.path("/budget/%d/payments", item.ID), "Nessun pagamento"},
		{e.path("/vendors"), "Fiori &amp; Co"},
		{e.path("/tasks"), "Scegliere le bomboniere"},
		{e.path("/tasks?status=open"), "Scegliere le bomboniere"},
	}
	for _, p := range pages {
		for _, htmx := range []bool{false, true} {
			rr := e.get(t, p.path, htmx)
			if rr.Code != http.StatusOK {
				t.Errorf("GET %s (htmx=%v) status = %d: %s", p.path, htmx, rr.Code, rr.Body)
				continue
			}
			if !strings.Contains(rr.Body.String(), p.want) {
				t.Errorf("GET %s (htmx=%v) body missing %q", p.path, htmx, p.want)
			}
		}
	}

	// Fragments carry no layout.
	rr := e.get(t, e.path("/guests"), true)
	if strings.Contains(rr.Body.String(), "<html") {
		t.Error("htmx request rendered the full page")
	}
}

func TestAutoAssignFlow(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	e.table(t, "Tavolo 1", 2, 1)
	e.guest(t, "Carla", "Zii", core.RSVPConfirmed)
	e.guest(t, "Anna", "Famiglia", core.RSVPConfirmed)
	e.guest(t, "Bruno", "Famiglia", core.RSVPConfirmed)
	e.guest(t, "Dario", "Amici", core.RSVPDeclined)

	rr := e.post(t, e.path("/seating/auto-assign"), url.Values{"strategy": {"by_group"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	trig := triggers(t, rr)
	if _, ok := trig[EventSeatingChanged]; !ok {
		t.Error("missing seating:changed trigger")
	}
	var note struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trig["show-notification"], &note); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if note.Type != string(NotificationWarning) || !strings.Contains(note.Message, "2 invitati assegnati, 1 senza posto") {
		t.Errorf("notification = %+v", note)
	}

	seated, err := e.repo.ListSeatedGuests(context.Background(), e.wedding.ID)
	if err != nil {
		t.Fatalf("list seated: %v", err)
	}
	if len(seated) != 2 {
		t.Fatalf("seated = %d, want 2", len(seated))
	}
	for _, g := range seated {
		if g.Group != "Famiglia" {
			t.Errorf("%s seated ahead of the Famiglia group", g.FirstName)
		}
	}

	rr = e.post(t, e.path("/seating/auto-assign"), url.Values{"strategy": {"alfabetico"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown strategy status = %d, want 422", rr.Code)
	}

	rr = e.post(t, e.path("/seating/clear"), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rr.Code)
	}
	seated, _ = e.repo.ListSeatedGuests(context.Background(), e.wedding.ID)
	if len(seated) != 0 {
		t.Errorf("seated after clear = %d", len(seated))
	}
}

func TestSeatGuestRejectsFullTableAndUnconfirmed(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	tb := e.table(t, "Piccolo", 1, 1)
	a := e.guest(t, "Anna", "", core.RSVPConfirmed)
	b := e.guest(t, "Bruno", "", core.RSVPConfirmed)
	c := e.guest(t, "Carla", "", core.RSVPPending)
	form := url.Values{"table_id": {fmt.Sprint(tb.ID)}}

	if rr := e.post(t, e.path("/guests/%d/seat", a.ID), form); rr.Code != http.StatusOK {
		t.Fatalf("seat status = %d: %s", rr.Code, rr.Body)
	}
	rr := e.post(t, e.path("/guests/%d/seat", b.ID), form)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "al completo") {
		t.Errorf("full table: status = %d body = %q", rr.Code, rr.Body)
	}
	rr = e.post(t, e.path("/guests/%d/seat", c.ID), url.Values{"table_id": {fmt.Sprint(tb.ID)}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unconfirmed guest: status = %d", rr.Code)
	}

	// Declining unseats the guest.
	rr = e.post(t, e.path("/guests/%d/rsvp", a.ID), url.Values{"rsvp_status": {"declined"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("rsvp status = %d", rr.Code)
	}
	if _, ok := triggers(t, rr)[EventSeatingChanged]; !ok {
		t.Error("unseating rsvp change did not fire seating:changed")
	}
	got, _ := e.repo.GetGuest(context.Background(), a.ID)
	if got.Seated() {
		t.Error("declined guest kept their seat")
	}
}

func TestRecordPayments(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})

	rr := e.post(t, e.path("/budget"), url.Values{
		"category":       {"Catering"},
		"estimated_cost": {"100"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("create item status = %d: %s", rr.Code, rr.Body)
	}
	items, err := e.repo.ListBudgetItems(context.Background(), e.wedding.ID, storage.BudgetFilter{})
	if err != nil || len(items) != 1 {
		t.Fatalf("items = %v, %v", items, err)
	}
	item := items[0]
	pay := e.path("/budget/%d/payments", item.ID)

	for _, amount := range []string{"0", "-5", "abc"} {
		if rr := e.post(t, pay, url.Values{"amount": {amount}}); rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("amount %q status = %d, want 422", amount, rr.Code)
		}
	}

	steps := []struct {
		amount string
		status core.PaymentStatus
		paid   int64
	}{
		{"40", core.PaymentPartial, 4000},
		{"60,00", core.PaymentPaid, 10000},
	}
	for _, s := range steps {
		rr := e.post(t, pay, url.Values{"amount": {s.amount}, "method": {"bonifico"}})
		if rr.Code != http.StatusOK {
			t.Fatalf("pay %s status = %d: %s", s.amount, rr.Code, rr.Body)
		}
		got, err := e.repo.GetBudgetItem(context.Background(), item.ID)
		if err != nil {
			t.Fatalf("get item: %v", err)
		}
		if got.Status != s.status || got.PaidAmount.Cents != s.paid {
			t.Errorf("after %s: status=%s paid=%d, want %s %d", s.amount, got.Status, got.PaidAmount.Cents, s.status, s.paid)
		}
	}

	rr = e.get(t, pay, true)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "bonifico") {
		t.Errorf("payments history status = %d body = %q", rr.Code, rr.Body)
	}
}

func TestDashboardCacheInvalidatedOnWrite(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})

	if rr := e.get(t, e.path("/dashboard"), true); rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rr.Code)
	}
	if _, ok := e.srv.dashboards.Get(e.wedding.ID); !ok {
		t.Fatal("dashboard not cached")
	}

	rr := e.post(t, e.path("/tasks"), url.Values{"title": {"Prenotare il fotografo"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("create task status = %d: %s", rr.Code, rr.Body)
	}
	if _, ok := e.srv.dashboards.Get(e.wedding.ID); ok {
		t.Error("dashboard still cached after a write")
	}

	d, err := e.srv.dashboard(context.Background(), e.wedding.ID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Tasks.Total != 1 {
		t.Errorf("tasks total = %d, want 1", d.Tasks.Total)
	}
}

func TestTaskToggle(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{})
	task, err := e.repo.CreateTask(context.Background(), core.Task{
		WeddingID: e.wedding.ID, Title: "Partecipazioni", Priority: core.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	rr := e.post(t, e.path("/tasks/%d/toggle", task.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rr.Code)
	}
	got, _ := e.repo.GetTask(context.Background(), task.ID)
	if !got.Completed || got.CompletedAt == nil {
		t.Errorf("task after toggle = %+v", got)
	}

	done := e.get(t, e.path("/tasks?status=done"), true)
	if !strings.Contains(done.Body.String(), "Partecipazioni") {
		t.Error("completed task missing from done filter")
	}
	open := e.get(t, e.path("/tasks?status=open"), true)
	if strings.Contains(open.Body.String(), "Partecipazioni") {
		t.Error("completed task listed as open")
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	e := newTestEnv(t, ratelimit.Config{
		Requests: 2,
		Window:   time.Minute,
		Methods:  []string{http.MethodPost},
	})

	for i := range 2 {
		rr := e.post(t, e.path("/tasks"), url.Values{"title": {fmt.Sprintf("Task %d", i)}})
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rr.Code)
		}
	}
	rr := e.post(t, e.path("/tasks"), url.Values{"title": {"Task 3"}})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// Reads are not limited.
	if rr := e.get(t, e.path("/tasks"), false); rr.Code != http.StatusOK {
		t.Errorf("GET after limit status = %d", rr.Code)
	}
}
