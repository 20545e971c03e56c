package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"hdb-resale/models"
	"hdb-resale/utils"
)

func testListings() []*models.Listing {
	mk := func(id int, town, flatType, block, street, ym string, price float64) *models.Listing {
		return &models.Listing{
			ID: id, Town: town, FlatType: flatType, Block: block, StreetName: street,
			Month: ym, YearMonth: ym, Price: price, Bedrooms: 3,
		}
	}
	return []*models.Listing{
		mk(0, "ANG MO KIO", "4 ROOM", "123", "AMK AVE 1", "2023-01", 400000),
		mk(1, "ANG MO KIO", "4 ROOM", "123", "AMK AVE 1", "2023-02", 420000),
		mk(2, "BEDOK", "3 ROOM", "9", "BEDOK NTH RD", "2023-02", 300000),
		mk(3, "ANG MO KIO", "4 ROOM", "123", "AMK AVE 1", "2023-02", 430000),
	}
}

func newTestServer(opts Options) *Server {
	return New(testListings(), opts, utils.Discard())
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(Options{}).Handler(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
}

func TestListListings(t *testing.T) {
	h := newTestServer(Options{}).Handler()

	tests := []struct {
		name      string
		target    string
		wantTotal int
		wantIDs   []int
	}{
		{"all", "/api/listings", 4, []int{0, 1, 2, 3}},
		{"town filter", "/api/listings?town=bedok", 1, []int{2}},
		{"price filter", "/api/listings?minPrice=410000", 2, []int{1, 3}},
		{"paged", "/api/listings?offset=1&limit=2", 4, []int{1, 2}},
		{"past end", "/api/listings?offset=10", 4, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d", rec.Code)
			}
			var page listPage
			decode(t, rec, &page)
			if page.Total != tt.wantTotal {
				t.Errorf("total: got %d, want %d", page.Total, tt.wantTotal)
			}
			ids := []int{}
			for _, l := range page.Listings {
				ids = append(ids, l.ID)
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListListingsBadPaging(t *testing.T) {
	h := newTestServer(Options{}).Handler()
	for _, target := range []string{
		"/api/listings?limit=abc",
		"/api/listings?limit=0",
		"/api/listings?offset=-1",
	} {
		if rec := get(t, h, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", target, rec.Code)
		}
	}
}

func TestGetListing(t *testing.T) {
	h := newTestServer(Options{}).Handler()

	rec := get(t, h, "/api/listings/2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var l models.Listing
	decode(t, rec, &l)
	if l.ID != 2 || l.Town != "BEDOK" {
		t.Errorf("unexpected listing: %+v", l)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/listings/99", http.StatusNotFound},
		{"/api/listings/-1", http.StatusNotFound},
		{"/api/listings/abc", http.StatusBadRequest},
		{"/api/listings/abc/history", http.StatusBadRequest},
		{"/api/listings/99/history", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := get(t, h, tt.target)
		if rec.Code != tt.want {
			t.Errorf("%s: got %d, want %d", tt.target, rec.Code, tt.want)
		}
		var body map[string]string
		decode(t, rec, &body)
		if body["error"] == "" {
			t.Errorf("%s: missing error message", tt.target)
		}
	}
}

func TestGetHistory(t *testing.T) {
	s := newTestServer(Options{HistoryCacheTTL: time.Minute})
	h := s.Handler()

	rec := get(t, h, "/api/listings/0/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var resp historyResponse
	decode(t, rec, &resp)

	want := []models.PriceHistoryPoint{
		{YearMonth: "2023-01", Price: 400000},
		{YearMonth: "2023-02", Price: 425000},
	}
	if diff := cmp.Diff(want, resp.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if resp.Address != "123-AMK AVE 1-4 ROOM" {
		t.Errorf("address: got %q", resp.Address)
	}

	if _, found := s.history.Get("123-AMK AVE 1-4 ROOM"); !found {
		t.Error("expected history to be cached by address")
	}

	rec = get(t, h, "/api/listings/3/history")
	var again historyResponse
	decode(t, rec, &again)
	if again.ListingID != 3 {
		t.Errorf("listing id: got %d", again.ListingID)
	}
	if diff := cmp.Diff(want, again.History); diff != "" {
		t.Errorf("shared address history mismatch (-want +got):\n%s", diff)
	}
}

func TestInsights(t *testing.T) {
	rec := get(t, newTestServer(Options{}).Handler(), "/api/insights")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var report models.InsightReport
	decode(t, rec, &report)
	if report.TotalListings != 4 {
		t.Errorf("total: got %d", report.TotalListings)
	}
	if report.ListingsByTown["ANG MO KIO"] != 3 {
		t.Errorf("by town: got %v", report.ListingsByTown)
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(Options{RateLimitRPS: 0.001, RateLimitBurst: 2}).Handler()

	for i := 0; i < 2; i++ {
		if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, rec.Code)
		}
	}
	if rec := get(t, h, "/healthz"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("over limit: got %d, want 429", rec.Code)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestServer(Options{}).Run(ctx, addr) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
