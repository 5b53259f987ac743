package sentiment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/drolelabs/drole/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMarket(yesPrice float64) domain.Market {
	return domain.Market{
		ID:          "m1",
		Question:    "Will the launch happen this quarter?",
		Description: "Resolves Yes on an official launch.",
		Category:    domain.CategoryBusiness,
		Outcomes: [2]domain.Outcome{
			{ID: "YES", Name: "Yes", Price: yesPrice},
			{ID: "NO", Name: "No", Price: 1 - yesPrice},
		},
	}
}

func TestService_Sentiment_NilProviderFallsBack(t *testing.T) {
	svc := NewService(nil, testLogger())

	got := svc.Sentiment(context.Background(), testMarket(0.42))
	if !got.Fallback {
		t.Error("Fallback = false, want true")
	}
	if got.Score != 42 {
		t.Errorf("score = %d, want 42", got.Score)
	}
	if got.Summary == "" || len(got.BullishFactors) == 0 || len(got.BearishFactors) == 0 {
		t.Errorf("fallback payload incomplete: %+v", got)
	}
}

func TestFallback_ScoreTracksYesPrice(t *testing.T) {
	tests := []struct {
		yesPrice float64
		want     int
	}{
		{0.01, 1},
		{0.50, 50},
		{0.99, 99},
		{0.666, 67}, // rounds
	}
	for _, tt := range tests {
		got := Fallback(testMarket(tt.yesPrice))
		if got.Score != tt.want {
			t.Errorf("Fallback(%v).Score = %d, want %d", tt.yesPrice, got.Score, tt.want)
		}
	}
}

func TestService_Sentiment_ProviderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sentiment" {
			t.Errorf("path = %s, want /v1/sentiment", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}

		var snap map[string]any
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			t.Errorf("decoding snapshot: %v", err)
		}
		if snap["question"] == "" {
			t.Error("snapshot missing question")
		}

		json.NewEncoder(w).Encode(domain.Sentiment{
			Score:          73,
			Summary:        "Leaning bullish on launch chatter.",
			BullishFactors: []string{"insider leaks"},
			BearishFactors: []string{"supply constraints"},
		})
	}))
	defer srv.Close()

	svc := NewService(NewHTTPProvider(srv.URL, "secret"), testLogger())

	got := svc.Sentiment(context.Background(), testMarket(0.42))
	if got.Fallback {
		t.Error("Fallback = true, want provider payload")
	}
	if got.Score != 73 {
		t.Errorf("score = %d, want 73", got.Score)
	}
}

func TestService_Sentiment_ProviderErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewService(NewHTTPProvider(srv.URL, ""), testLogger())

	got := svc.Sentiment(context.Background(), testMarket(0.42))
	if !got.Fallback {
		t.Error("Fallback = false, want fallback on provider error")
	}
	if got.Score != 42 {
		t.Errorf("score = %d, want price-derived 42", got.Score)
	}
}

func TestHTTPProvider_Sentiment_RejectsOutOfRangeScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.Sentiment{Score: 140})
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "")
	if _, err := p.Sentiment(context.Background(), testMarket(0.5)); err == nil {
		t.Error("Sentiment() error = nil, want out-of-range rejection")
	}
}

func TestHTTPProvider_EmptyBaseURL(t *testing.T) {
	p := NewHTTPProvider("", "")
	if _, err := p.Sentiment(context.Background(), testMarket(0.5)); err == nil {
		t.Error("Sentiment() error = nil, want ErrProviderUnavailable")
	}
}

func TestService_Analyze_ProviderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Errorf("path = %s, want /v1/analyze", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "Deep dive goes here."})
	}))
	defer srv.Close()

	svc := NewService(NewHTTPProvider(srv.URL, ""), testLogger())

	got := svc.Analyze(context.Background(), testMarket(0.42))
	if got != "Deep dive goes here." {
		t.Errorf("Analyze() = %q", got)
	}
}

func TestService_Analyze_FallbackMentionsImpliedProbability(t *testing.T) {
	svc := NewService(nil, testLogger())

	got := svc.Analyze(context.Background(), testMarket(0.42))
	if !strings.Contains(got, "42%") {
		t.Errorf("fallback analysis = %q, want implied probability mentioned", got)
	}
}
