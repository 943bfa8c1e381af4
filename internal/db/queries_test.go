package db

import (
	"context"
	"testing"
	"time"

	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

func TestInsertAPICall(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	call := &models.APICall{
		RequestID:  "req-123",
		Backend:    "qwen",
		Model:      "qwen-plus",
		Complexity: "complex",
		Pass:       1,
		Tokens:     300,
		DurationMs: 150,
		StatusCode: 200,
		Success:    true,
	}

	if err := db.InsertAPICall(context.Background(), call); err != nil {
		t.Fatalf("InsertAPICall() failed: %v", err)
	}

	if call.ID == 0 {
		t.Error("InsertAPICall() should set ID")
	}
}

func TestInsertAPICall_WithError(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	call := &models.APICall{
		RequestID:  "req-1",
		Backend:    "ernie",
		Model:      "ernie-4.0-8k",
		StatusCode: 500,
		Error:      "ernie error 111: Access token expired",
		ErrorKind:  "token_expired",
	}

	if err := db.InsertAPICall(context.Background(), call); err != nil {
		t.Fatalf("InsertAPICall() with error failed: %v", err)
	}

	recent, err := db.GetRecentAPICalls(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetRecentAPICalls() failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("got %d calls, want 1", len(recent))
	}
	if recent[0].Error != call.Error || recent[0].ErrorKind != "token_expired" {
		t.Errorf("error fields not persisted: %+v", recent[0])
	}
	if recent[0].Success {
		t.Error("Success should be false")
	}
}

func TestGetRecentAPICalls(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	now := time.Now()
	calls := []*models.APICall{
		{RequestID: "a", Backend: "local", Model: "qwen2.5:7b", Timestamp: now.Add(-3 * time.Hour), Success: true},
		{RequestID: "b", Backend: "gemini", Model: "gemini-1.5-flash", Timestamp: now.Add(-2 * time.Hour), Success: true},
		{RequestID: "c", Backend: "qwen", Model: "qwen-plus", Timestamp: now.Add(-1 * time.Hour), Degraded: true},
	}

	for _, call := range calls {
		if err := db.InsertAPICall(context.Background(), call); err != nil {
			t.Fatalf("InsertAPICall() failed: %v", err)
		}
	}

	recent, err := db.GetRecentAPICalls(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetRecentAPICalls() failed: %v", err)
	}

	if len(recent) != 2 {
		t.Fatalf("GetRecentAPICalls(2) returned %d calls, want 2", len(recent))
	}
	if recent[0].RequestID != "c" || recent[1].RequestID != "b" {
		t.Errorf("calls not ordered newest first: %s, %s", recent[0].RequestID, recent[1].RequestID)
	}
	if !recent[0].Degraded {
		t.Error("Degraded flag not persisted")
	}
}

func TestRecordAttempt(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	attempt := engine.Attempt{
		RequestID: "req-9",
		Request:   models.Request{Prompt: "p", Complexity: models.ComplexityAdvanced},
		Pass:      2,
		Result: models.NewFailure(models.BackendQwen, "qwen-plus", models.KindAuth, "bad key", 40*time.Millisecond).
			WithStatus(401),
	}

	if err := db.RecordAttempt(context.Background(), attempt); err != nil {
		t.Fatalf("RecordAttempt() failed: %v", err)
	}

	recent, err := db.GetRecentAPICalls(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetRecentAPICalls() failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("got %d calls, want 1", len(recent))
	}

	got := recent[0]
	if got.Backend != "qwen" || got.Complexity != "advanced" || got.Pass != 2 {
		t.Errorf("unexpected row: %+v", got)
	}
	if got.StatusCode != 401 || got.DurationMs != 40 || got.ErrorKind != "auth" {
		t.Errorf("unexpected result fields: %+v", got)
	}
}

func TestGetHourlyStats(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	now := time.Now()
	for i := 0; i < 5; i++ {
		call := &models.APICall{
			RequestID:  "r",
			Backend:    "local",
			Model:      "m",
			Timestamp:  now.Add(-30 * time.Minute),
			Tokens:     10,
			DurationMs: 100,
			Success:    i != 0,
		}
		if err := db.InsertAPICall(context.Background(), call); err != nil {
			t.Fatalf("InsertAPICall() failed: %v", err)
		}
	}
	old := &models.APICall{RequestID: "old", Backend: "local", Timestamp: now.Add(-72 * time.Hour)}
	if err := db.InsertAPICall(context.Background(), old); err != nil {
		t.Fatalf("InsertAPICall() failed: %v", err)
	}

	stats, err := db.GetHourlyStats(context.Background(), 24)
	if err != nil {
		t.Fatalf("GetHourlyStats() failed: %v", err)
	}

	total := 0
	errors := 0
	var tokens int64
	for _, s := range stats {
		total += s.TotalCalls
		errors += s.ErrorCount
		tokens += s.TotalTokens
	}
	if total != 5 {
		t.Errorf("total calls = %d, want 5", total)
	}
	if errors != 1 {
		t.Errorf("error count = %d, want 1", errors)
	}
	if tokens != 50 {
		t.Errorf("tokens = %d, want 50", tokens)
	}
}

func TestGetTotalStats(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	empty, err := db.GetTotalStats(context.Background())
	if err != nil {
		t.Fatalf("GetTotalStats() on empty db failed: %v", err)
	}
	if empty.TotalCalls != 0 {
		t.Errorf("TotalCalls = %d, want 0", empty.TotalCalls)
	}

	calls := []*models.APICall{
		{RequestID: "r1", Backend: "local", Model: "m1", DurationMs: 100, Tokens: 5},
		{RequestID: "r1", Backend: "qwen", Model: "qwen-plus", DurationMs: 300, Tokens: 7, Success: true},
		{RequestID: "r2", Backend: "qwen", Model: "qwen-plus", DurationMs: 200, Tokens: 8, Success: true},
	}
	for _, c := range calls {
		if err := db.InsertAPICall(context.Background(), c); err != nil {
			t.Fatalf("InsertAPICall() failed: %v", err)
		}
	}

	stats, err := db.GetTotalStats(context.Background())
	if err != nil {
		t.Fatalf("GetTotalStats() failed: %v", err)
	}

	if stats.TotalCalls != 3 {
		t.Errorf("TotalCalls = %d, want 3", stats.TotalCalls)
	}
	if stats.TotalTokens != 20 {
		t.Errorf("TotalTokens = %d, want 20", stats.TotalTokens)
	}
	if stats.AvgDurationMs != 200 {
		t.Errorf("AvgDurationMs = %v, want 200", stats.AvgDurationMs)
	}
	if stats.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", stats.ErrorCount)
	}
	if stats.UniqueBackends != 2 || stats.UniqueModels != 2 || stats.UniqueRequests != 2 {
		t.Errorf("unexpected distinct counts: %+v", stats)
	}
}

func TestGetBackendTotals(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	calls := []*models.APICall{
		{RequestID: "1", Backend: "qwen", Success: true, Tokens: 10, DurationMs: 100},
		{RequestID: "2", Backend: "qwen", Success: false, DurationMs: 300},
		{RequestID: "3", Backend: "local", Success: true, Tokens: 4, DurationMs: 50},
	}
	for _, c := range calls {
		if err := db.InsertAPICall(context.Background(), c); err != nil {
			t.Fatalf("InsertAPICall() failed: %v", err)
		}
	}

	totals, err := db.GetBackendTotals(context.Background())
	if err != nil {
		t.Fatalf("GetBackendTotals() failed: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("got %d backends, want 2", len(totals))
	}

	qwen := totals[0]
	if qwen.Backend != models.BackendQwen {
		t.Fatalf("busiest backend = %s, want qwen", qwen.Backend)
	}
	if qwen.TotalCalls != 2 || qwen.SuccessCount != 1 || qwen.FailureCount != 1 {
		t.Errorf("unexpected qwen counts: %+v", qwen)
	}
	if qwen.AvgDurationMs != 200 || qwen.TotalTokens != 10 {
		t.Errorf("unexpected qwen aggregates: %+v", qwen)
	}
}

func TestPruneAPICalls(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	now := time.Now()
	for _, ts := range []time.Time{now.Add(-48 * time.Hour), now.Add(-time.Hour)} {
		if err := db.InsertAPICall(context.Background(), &models.APICall{RequestID: "r", Backend: "local", Timestamp: ts}); err != nil {
			t.Fatalf("InsertAPICall() failed: %v", err)
		}
	}

	n, err := db.PruneAPICalls(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneAPICalls() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
}

func TestNullString(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("nullString(\"x\") = %+v", ns)
	}
}
