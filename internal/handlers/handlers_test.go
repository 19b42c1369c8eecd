package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stockscout/stockscout/internal/blob"
	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
	"github.com/stockscout/stockscout/internal/research"
	"github.com/stockscout/stockscout/internal/storage/file"
)

type stubSearcher struct{}

func (s *stubSearcher) Search(ctx context.Context, query string, topK int) ([]models.Source, error) {
	return []models.Source{{Title: "Hit", URL: "https://example.com/a", Excerpt: "snippet"}}, nil
}

type stubExtractor struct{}

func (e *stubExtractor) Extract(ctx context.Context, url string) (string, error) {
	return "page text", nil
}

type stubSynth struct{}

func (s *stubSynth) Synthesize(ctx context.Context, req interfaces.SynthesisRequest) (*models.SynthesizedReport, error) {
	md := "# Weekly Research\n\nFindings here.\n"
	return &models.SynthesizedReport{Title: "Weekly Research", Markdown: md, HTML: "<html></html>"}, nil
}

func (s *stubSynth) ExtractTickers(ctx context.Context, markdown string) ([]string, error) {
	return nil, nil
}

type stubPrices struct {
	quotes map[string]float64
}

func (p *stubPrices) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	price, ok := p.quotes[symbol]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

type stubEmail struct {
	sent []interfaces.EmailMessage
}

func (e *stubEmail) Send(ctx context.Context, msg interfaces.EmailMessage) error {
	e.sent = append(e.sent, msg)
	return nil
}

type fixture struct {
	cfg       *config.Config
	storage   interfaces.StorageManager
	blobs     interfaces.ObjectStore
	engine    *research.Engine
	email     *stubEmail
	schedules *SchedulesHandler
	reports   *ReportsHandler
	runs      *RunsHandler
	runOnce   *RunOnceHandler
	tracked   *TrackedStocksHandler
	artifacts *ArtifactsHandler
}

func setupHandlers(t *testing.T) *fixture {
	t.Helper()
	logger := common.NewSilentLogger()

	cfg := config.NewDefaultConfig()
	cfg.Storage.Backend = "file"
	cfg.Storage.File.Path = filepath.Join(t.TempDir(), "db.json")
	cfg.Blob.Dir = t.TempDir()
	cfg.Blob.SigningKey = "test-signing-key"
	cfg.Blob.PublicBaseURL = "http://localhost:4310"

	storage, err := file.NewManager(logger, &cfg.Storage.File)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	blobs, err := blob.NewStore(logger, &cfg.Blob)
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}

	email := &stubEmail{}
	engine := research.NewEngine(logger, cfg, storage, blobs,
		&stubSearcher{}, &stubExtractor{}, &stubSynth{},
		&stubPrices{quotes: map[string]float64{"AAPL": 212.49}}, email)

	return &fixture{
		cfg:       cfg,
		storage:   storage,
		blobs:     blobs,
		engine:    engine,
		email:     email,
		schedules: NewSchedulesHandler(logger, storage, blobs, engine),
		reports:   NewReportsHandler(logger, cfg, storage, blobs, engine),
		runs:      NewRunsHandler(logger, storage),
		runOnce:   NewRunOnceHandler(logger, engine),
		tracked:   NewTrackedStocksHandler(logger, storage, &stubPrices{quotes: map[string]float64{"AAPL": 212.49}}),
		artifacts: NewArtifactsHandler(logger, blobs),
	}
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestSchedules_CreateAndList(t *testing.T) {
	f := setupHandlers(t)

	rec := doJSON(t, f.schedules.ServeCollection, "POST", "/api/schedules", map[string]interface{}{
		"symbols":    []string{" aapl ", "msft"},
		"recurrence": map[string]interface{}{"cadence": "daily", "interval": 1, "hour": 7},
		"email":      map[string]interface{}{"to": []string{"a@b.c"}, "attachPdf": true},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created models.Schedule
	decodeBody(t, rec, &created)
	if created.ID == "" || !created.Active {
		t.Fatalf("unexpected schedule: %+v", created)
	}
	if created.Symbols[0] != "AAPL" || created.Symbols[1] != "MSFT" {
		t.Fatalf("symbols not normalized: %v", created.Symbols)
	}
	if created.NextRunAt == "" {
		t.Fatal("expected NextRunAt to be set")
	}
	next, err := models.ParseTime(created.NextRunAt)
	if err != nil || !next.After(time.Now().UTC().Add(-time.Second)) {
		t.Fatalf("NextRunAt not in the future: %s", created.NextRunAt)
	}

	rec = doJSON(t, f.schedules.ServeCollection, "GET", "/api/schedules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []models.Schedule
	decodeBody(t, rec, &listed)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("listed = %+v", listed)
	}
}

func TestSchedules_CreateValidation(t *testing.T) {
	f := setupHandlers(t)

	rec := doJSON(t, f.schedules.ServeCollection, "POST", "/api/schedules", map[string]interface{}{
		"prompt":  "outlook for rare earths",
		"symbols": []string{"MP"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("both prompt and symbols: status = %d", rec.Code)
	}

	rec = doJSON(t, f.schedules.ServeCollection, "POST", "/api/schedules", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("neither prompt nor symbols: status = %d", rec.Code)
	}
}

func TestSchedules_GetScopedToOwner(t *testing.T) {
	f := setupHandlers(t)

	other := &models.Schedule{ID: "sch-other", UserID: "someone-else", Symbols: []string{"NVDA"}}
	if err := f.storage.Schedules().Put(context.Background(), other); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, f.schedules.ServeItem, "GET", "/api/schedules/sch-other", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign schedule status = %d", rec.Code)
	}
}

func TestSchedules_UpdateRecurrenceRecomputesNextRun(t *testing.T) {
	f := setupHandlers(t)

	rec := doJSON(t, f.schedules.ServeCollection, "POST", "/api/schedules", map[string]interface{}{
		"symbols":    []string{"AAPL"},
		"recurrence": map[string]interface{}{"cadence": "weekly", "interval": 1, "weekday": 0, "hour": 7},
	})
	var created models.Schedule
	decodeBody(t, rec, &created)

	rec = doJSON(t, f.schedules.ServeItem, "PUT", "/api/schedules/"+created.ID, map[string]interface{}{
		"recurrence": map[string]interface{}{"cadence": "hourly", "interval": 1},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated models.Schedule
	decodeBody(t, rec, &updated)
	if updated.Recurrence.Cadence != "hourly" {
		t.Fatalf("cadence = %s", updated.Recurrence.Cadence)
	}
	if updated.NextRunAt == created.NextRunAt {
		t.Fatal("expected NextRunAt to be re-anchored")
	}
	next, _ := models.ParseTime(updated.NextRunAt)
	if next.After(time.Now().UTC().Add(2 * time.Hour)) {
		t.Fatalf("hourly next run too far out: %s", updated.NextRunAt)
	}
}

func TestSchedules_DeleteCascades(t *testing.T) {
	f := setupHandlers(t)
	ctx := context.Background()

	sched := &models.Schedule{ID: "sch-1", UserID: common.DevUser.ID, Symbols: []string{"AAPL"}}
	if err := f.storage.Schedules().Put(ctx, sched); err != nil {
		t.Fatal(err)
	}
	run := &models.Run{ID: "run-1", ScheduleID: "sch-1", UserID: common.DevUser.ID, Status: models.RunStatusSucceeded, CreatedAt: models.FormatTime(time.Now())}
	if err := f.storage.Runs().Put(ctx, run); err != nil {
		t.Fatal(err)
	}
	path := common.DevUser.ID + "/sch-1/run-1/report.md"
	if err := f.blobs.Put(ctx, path, "text/markdown", []byte("# r")); err != nil {
		t.Fatal(err)
	}
	rep := &models.Report{
		ID: "run-1", RunID: "run-1", ScheduleID: "sch-1", UserID: common.DevUser.ID,
		BlobPaths: map[string]string{"md": path}, Status: models.RunStatusSucceeded,
		CreatedAt: models.FormatTime(time.Now()),
	}
	if err := f.storage.Reports().Put(ctx, rep); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, f.schedules.ServeItem, "DELETE", "/api/schedules/sch-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	if _, err := f.storage.Schedules().Get(ctx, "sch-1"); err == nil {
		t.Fatal("schedule still present")
	}
	if _, err := f.storage.Runs().Get(ctx, "run-1"); err == nil {
		t.Fatal("run still present")
	}
	if _, err := f.storage.Reports().Get(ctx, "run-1"); err == nil {
		t.Fatal("report still present")
	}
	if _, _, err := f.blobs.Get(ctx, path); err == nil {
		t.Fatal("artifact still present")
	}
}

func TestSchedules_TriggerRun(t *testing.T) {
	f := setupHandlers(t)
	ctx := context.Background()

	sched := &models.Schedule{ID: "sch-run", UserID: common.DevUser.ID, Symbols: []string{"AAPL"}}
	if err := f.storage.Schedules().Put(ctx, sched); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, f.schedules.ServeItem, "POST", "/api/schedules/sch-run/run", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("trigger status = %d, body %s", rec.Code, rec.Body.String())
	}
	var run models.Run
	decodeBody(t, rec, &run)
	if run.ScheduleID != "sch-run" {
		t.Fatalf("run = %+v", run)
	}

	f.engine.Wait()
	stored, err := f.storage.Runs().Get(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.RunStatusSucceeded {
		t.Fatalf("run status = %s (%s)", stored.Status, stored.Error)
	}
}

func TestRunOnce(t *testing.T) {
	f := setupHandlers(t)

	rec := doJSON(t, f.runOnce.ServeHTTP, "POST", "/api/run-once", map[string]interface{}{
		"prompt": "undervalued industrials",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("run-once status = %d, body %s", rec.Code, rec.Body.String())
	}
	var run models.Run
	decodeBody(t, rec, &run)
	if run.ScheduleID != models.OneOffScheduleID {
		t.Fatalf("scheduleId = %s", run.ScheduleID)
	}
	f.engine.Wait()

	rec = doJSON(t, f.runOnce.ServeHTTP, "POST", "/api/run-once", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty run-once status = %d", rec.Code)
	}
}

func TestRuns_List(t *testing.T) {
	f := setupHandlers(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := &models.Run{
			ID: fmt.Sprintf("run-%d", i), ScheduleID: "sch-1", UserID: common.DevUser.ID,
			Status:    models.RunStatusSucceeded,
			CreatedAt: models.FormatTime(time.Now().Add(time.Duration(i) * time.Minute)),
		}
		if err := f.storage.Runs().Put(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, f.runs.ServeHTTP, "GET", "/api/runs?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var runs []models.Run
	decodeBody(t, rec, &runs)
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestRuns_ScheduleFilterAppliesBeforeLimit(t *testing.T) {
	f := setupHandlers(t)
	ctx := context.Background()

	// Newest run belongs to a different schedule; a limited, filtered
	// list must still find the older matching run.
	base := time.Now()
	for i, sched := range []string{"sch-a", "sch-a", "sch-b"} {
		run := &models.Run{
			ID: fmt.Sprintf("run-%d", i), ScheduleID: sched, UserID: common.DevUser.ID,
			Status:    models.RunStatusSucceeded,
			CreatedAt: models.FormatTime(base.Add(time.Duration(i) * time.Minute)),
		}
		if err := f.storage.Runs().Put(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, f.runs.ServeHTTP, "GET", "/api/runs?limit=1&scheduleId=sch-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var runs []models.Run
	decodeBody(t, rec, &runs)
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Fatalf("runs = %+v", runs)
	}

	rec = doJSON(t, f.runs.ServeHTTP, "GET", "/api/runs?scheduleId=sch-b", nil)
	decodeBody(t, rec, &runs)
	if len(runs) != 1 || runs[0].ID != "run-2" {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestReports_ScheduleFilterAppliesBeforeLimit(t *testing.T) {
	f := setupHandlers(t)
	ctx := context.Background()

	base := time.Now()
	for i, sched := range []string{"sch-a", "sch-b"} {
		rep := &models.Report{
			ID: fmt.Sprintf("rep-%d", i), RunID: fmt.Sprintf("rep-%d", i),
			ScheduleID: sched, UserID: common.DevUser.ID,
			Status:    models.RunStatusSucceeded,
			CreatedAt: models.FormatTime(base.Add(time.Duration(i) * time.Minute)),
		}
		if err := f.storage.Reports().Put(ctx, rep); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, f.reports.ServeCollection, "GET", "/api/reports?limit=1&scheduleId=sch-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var reps []models.Report
	decodeBody(t, rec, &reps)
	if len(reps) != 1 || reps[0].ID != "rep-0" {
		t.Fatalf("reports = %+v", reps)
	}
}

func seedReport(t *testing.T, f *fixture, id string) *models.Report {
	t.Helper()
	ctx := context.Background()
	htmlPath := common.DevUser.ID + "/sch-1/" + id + "/report.html"
	mdPath := common.DevUser.ID + "/sch-1/" + id + "/report.md"
	if err := f.blobs.Put(ctx, htmlPath, "text/html", []byte("<html><body>r</body></html>")); err != nil {
		t.Fatal(err)
	}
	if err := f.blobs.Put(ctx, mdPath, "text/markdown", []byte("# r")); err != nil {
		t.Fatal(err)
	}
	rep := &models.Report{
		ID: id, RunID: id, ScheduleID: "sch-1", UserID: common.DevUser.ID,
		Title:     "Weekly Research",
		BlobPaths: map[string]string{"html": htmlPath, "md": mdPath},
		Status:    models.RunStatusSucceeded,
		CreatedAt: models.FormatTime(time.Now()),
	}
	if err := f.storage.Reports().Put(ctx, rep); err != nil {
		t.Fatal(err)
	}
	return rep
}

func TestReports_GetIncludesSignedLinks(t *testing.T) {
	f := setupHandlers(t)
	rep := seedReport(t, f, "rep-1")

	rec := doJSON(t, f.reports.ServeItem, "GET", "/api/reports/"+rep.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp reportResponse
	decodeBody(t, rec, &resp)
	if resp.Title != "Weekly Research" {
		t.Fatalf("title = %s", resp.Title)
	}
	for _, kind := range []string{"html", "md"} {
		link, ok := resp.Links[kind]
		if !ok || !strings.Contains(link, "token=") {
			t.Fatalf("link for %s missing or untokened: %q", kind, link)
		}
	}
}

func TestReports_DeleteRemovesArtifacts(t *testing.T) {
	f := setupHandlers(t)
	rep := seedReport(t, f, "rep-2")

	rec := doJSON(t, f.reports.ServeItem, "DELETE", "/api/reports/"+rep.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if _, err := f.storage.Reports().Get(context.Background(), rep.ID); err == nil {
		t.Fatal("report still present")
	}
	if _, _, err := f.blobs.Get(context.Background(), rep.BlobPaths["html"]); err == nil {
		t.Fatal("artifact still present")
	}
}

func TestReports_SendEmail(t *testing.T) {
	f := setupHandlers(t)
	rep := seedReport(t, f, "rep-3")

	rec := doJSON(t, f.reports.ServeItem, "POST", "/api/reports/"+rep.ID+"/send-email", map[string]interface{}{
		"to": []string{"reader@example.com"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("send-email status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(f.email.sent) != 1 {
		t.Fatalf("sent %d emails", len(f.email.sent))
	}
	msg := f.email.sent[0]
	if msg.To[0] != "reader@example.com" || !strings.Contains(msg.Subject, "Weekly Research") {
		t.Fatalf("message = %+v", msg)
	}

	rec = doJSON(t, f.reports.ServeItem, "POST", "/api/reports/"+rep.ID+"/send-email", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("no recipients status = %d", rec.Code)
	}
}

func TestTrackedStocks_CreateValidation(t *testing.T) {
	f := setupHandlers(t)

	cases := []map[string]interface{}{
		{"recommendationDate": "2026-08-30", "recommendationPrice": 10.0},
		{"symbol": "AAPL", "recommendationPrice": 10.0},
		{"symbol": "AAPL", "recommendationDate": "2026-08-30"},
	}
	for i, body := range cases {
		rec := doJSON(t, f.tracked.ServeCollection, "POST", "/api/tracked-stocks", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("case %d: status = %d", i, rec.Code)
		}
	}
}

func TestTrackedStocks_CreateListDelete(t *testing.T) {
	f := setupHandlers(t)

	rec := doJSON(t, f.tracked.ServeCollection, "POST", "/api/tracked-stocks", map[string]interface{}{
		"symbol":              "aapl",
		"recommendationDate":  "2026-08-30",
		"recommendationPrice": 210.15,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created models.TrackedStock
	decodeBody(t, rec, &created)
	if created.Symbol != "AAPL" || created.RecommendationPrice != 210.15 {
		t.Fatalf("created = %+v", created)
	}

	rec = doJSON(t, f.tracked.ServeCollection, "GET", "/api/tracked-stocks", nil)
	var listed []models.TrackedStock
	decodeBody(t, rec, &listed)
	if len(listed) != 1 {
		t.Fatalf("listed = %+v", listed)
	}

	rec = doJSON(t, f.tracked.ServeItem, "DELETE", "/api/tracked-stocks/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestTrackedStocks_CurrentPrices(t *testing.T) {
	f := setupHandlers(t)
	ctx := context.Background()

	for _, stock := range []*models.TrackedStock{
		{ID: "ts-1", UserID: common.DevUser.ID, Symbol: "AAPL", RecommendationDate: "2026-08-01", CreatedAt: models.FormatTime(time.Now())},
		{ID: "ts-2", UserID: common.DevUser.ID, Symbol: "ZZZZ", RecommendationDate: "2026-08-02", CreatedAt: models.FormatTime(time.Now())},
	} {
		if _, err := f.storage.TrackedStocks().Upsert(ctx, stock); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, f.tracked.ServeItem, "GET", "/api/tracked-stocks/prices", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var prices map[string]float64
	decodeBody(t, rec, &prices)
	if prices["AAPL"] != 212.49 {
		t.Fatalf("prices = %v", prices)
	}
	if _, ok := prices["ZZZZ"]; ok {
		t.Fatal("failed quote should be omitted")
	}
}

func TestArtifacts_ServeWithToken(t *testing.T) {
	f := setupHandlers(t)
	ctx := context.Background()

	path := common.DevUser.ID + "/sch-1/run-9/report.html"
	if err := f.blobs.Put(ctx, path, "text/html", []byte("<html>ok</html>")); err != nil {
		t.Fatal(err)
	}
	link, err := f.blobs.SignedURL(path, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", parsed.Path+"?"+parsed.RawQuery, nil)
	rec := httptest.NewRecorder()
	f.artifacts.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
		t.Fatalf("content type = %s", ct)
	}
	if rec.Body.String() != "<html>ok</html>" {
		t.Fatalf("body = %s", rec.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/artifacts/"+path+"?token=1.bogus", nil)
	rec = httptest.NewRecorder()
	f.artifacts.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("forged token status = %d", rec.Code)
	}
}
