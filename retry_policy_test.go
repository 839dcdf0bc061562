package companycam

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func responseWithStatus(status int) *http.Response {
	return &http.Response{StatusCode: status, Header: http.Header{}}
}

func TestShouldRetryEligibilityTable(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		status         int // 0 means network error (no response)
		allowPostRetry bool
		want           bool
	}{
		{"GET 500", "GET", 500, false, true},
		{"GET 502", "GET", 502, false, true},
		{"GET 408", "GET", 408, false, true},
		{"GET 429", "GET", 429, false, true},
		{"GET 400", "GET", 400, false, false},
		{"GET 404", "GET", 404, false, false},
		{"PUT 503", "PUT", 503, false, true},
		{"PATCH 429", "PATCH", 429, false, true},
		{"DELETE 500", "DELETE", 500, false, true},
		{"POST 500 default", "POST", 500, false, false},
		{"POST 500 opted in", "POST", 500, true, true},
		{"POST network default", "POST", 0, false, false},
		{"POST network opted in", "POST", 0, true, true},
		{"GET network", "GET", 0, false, true},
		{"lowercase get 500", "get", 500, false, true},
		{"unknown method 500", "BREW", 500, false, true},
		{"missing method 500", "", 500, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := NewDefaultRetryPolicy(3, tt.allowPostRetry)
			var resp *http.Response
			var err error
			if tt.status == 0 {
				err = errors.New("connection reset")
			} else {
				resp = responseWithStatus(tt.status)
			}
			_, got := policy.ShouldRetry(tt.method, resp, err, 0)
			if got != tt.want {
				t.Errorf("ShouldRetry(%s, %d) = %v, want %v", tt.method, tt.status, got, tt.want)
			}
		})
	}
}

func TestShouldRetryStopsAtBudget(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, false)

	if _, retry := policy.ShouldRetry("GET", responseWithStatus(500), nil, 2); !retry {
		t.Error("Expected retry while under budget")
	}
	if _, retry := policy.ShouldRetry("GET", responseWithStatus(500), nil, 3); retry {
		t.Error("Expected no retry once budget is spent")
	}
}

func TestShouldRetryDelayRange(t *testing.T) {
	policy := NewDefaultRetryPolicy(5, false)

	// Third retry: 200ms * 2^2 = 800ms plus up to 20% jitter.
	delay, retry := policy.ShouldRetry("GET", responseWithStatus(500), nil, 2)
	if !retry {
		t.Fatal("Expected retry for GET 500")
	}
	if delay < 800*time.Millisecond || delay > 960*time.Millisecond {
		t.Errorf("Expected delay in [800ms, 960ms], got %v", delay)
	}
}

func TestShouldRetryHonorsRetryAfterSeconds(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, false)
	resp := responseWithStatus(429)
	resp.Header.Set("Retry-After", "5")

	for attempt := 0; attempt < 3; attempt++ {
		delay, retry := policy.ShouldRetry("GET", resp, nil, attempt)
		if !retry {
			t.Fatalf("Expected retry at attempt %d", attempt)
		}
		if delay != 5*time.Second {
			t.Errorf("attempt %d: expected exactly 5s, got %v", attempt, delay)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "5", 5 * time.Second},
		{"seconds with spaces", " 3 ", 3 * time.Second},
		{"zero seconds", "0", 0},
		{"negative seconds", "-2", 0},
		{"seconds above cap", "30", maxRetryDelay},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(3 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > 3*time.Second {
		t.Errorf("Expected delay in (0, 3s] for near-future date, got %v", got)
	}

	farFuture := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(farFuture); got != maxRetryDelay {
		t.Errorf("Expected far-future date capped at %v, got %v", maxRetryDelay, got)
	}

	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(past); got != 0 {
		t.Errorf("Expected 0 for past date, got %v", got)
	}
}

func TestShouldRetryIgnoresSuccessfulResponses(t *testing.T) {
	policy := NewDefaultRetryPolicy(3, false)
	for _, status := range []int{200, 201, 204, 301, 304} {
		if _, retry := policy.ShouldRetry("GET", responseWithStatus(status), nil, 0); retry {
			t.Errorf("Expected no retry for status %d", status)
		}
	}
}
