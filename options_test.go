package companycam

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestValidateConfigurationDefaults(t *testing.T) {
	client := New(WithoutRateLimiter())
	if err := client.ValidateConfiguration(); err != nil {
		t.Errorf("Expected default configuration to validate, got %v", err)
	}
	if !client.IsValid() {
		t.Error("Expected IsValid for default configuration")
	}
}

func TestValidateConfigurationProblems(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
		problem string
	}{
		{"negative retries", []Option{WithRetries(-1)}, "retries must be non-negative"},
		{"excessive retries", []Option{WithRetries(101)}, "excessive resource usage"},
		{"zero timeout", []Option{WithTimeout(0)}, "timeout must be positive"},
		{"nil http client", []Option{WithHTTPClient(nil)}, "HTTP client cannot be nil"},
		{"relative base url", []Option{WithBaseURL("api.companycam.test/v2")}, "not an absolute URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(append([]Option{WithoutRateLimiter()}, tt.options...)...)
			err := client.ValidateConfiguration()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("Expected %q in error, got %v", tt.problem, err)
			}
			if client.IsValid() {
				t.Error("Expected IsValid to be false")
			}
		})
	}
}

func TestValidateConfigurationAggregatesProblems(t *testing.T) {
	client := New(WithoutRateLimiter(), WithRetries(-1), WithTimeout(-time.Second))

	err := client.ValidateConfiguration()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"retries must be non-negative", "timeout must be positive"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected aggregated error to mention %q, got %v", want, err)
		}
	}
}

func TestValidateNilRetryPolicy(t *testing.T) {
	// New always installs a default policy; a hand-built client can miss one.
	client := &Client{httpClient: &http.Client{}, timeout: time.Second}

	err := client.ValidateConfiguration()
	if err == nil || !strings.Contains(err.Error(), "retry policy cannot be nil") {
		t.Errorf("Expected nil policy problem, got %v", err)
	}
}

func TestValidateDebugRequiresGenerator(t *testing.T) {
	client := New(
		WithoutRateLimiter(),
		WithLogger(NewSimpleLogger()),
		WithDebugConfig(&DebugConfig{Enabled: true}),
	)

	err := client.ValidateConfiguration()
	if err == nil || !strings.Contains(err.Error(), "RequestIDGen") {
		t.Errorf("Expected RequestIDGen problem, got %v", err)
	}
}

func TestWithDebugInstallsLoggerAndDefaults(t *testing.T) {
	client := New(WithoutRateLimiter(), WithDebug())
	defer client.Dispose()

	if client.logger == nil {
		t.Error("Expected WithDebug to install a logger")
	}
	if client.debug == nil || !client.debug.Enabled {
		t.Error("Expected debug enabled")
	}
	if err := client.ValidateConfiguration(); err != nil {
		t.Errorf("Expected debug configuration to validate, got %v", err)
	}
}

func TestWithRequestIDGenerator(t *testing.T) {
	client := New(WithoutRateLimiter(), WithRequestIDGenerator(func() string { return "fixed" }))

	if client.debug == nil || client.debug.RequestIDGen == nil {
		t.Fatal("Expected generator installed")
	}
	if got := client.debug.RequestIDGen(); got != "fixed" {
		t.Errorf("Expected custom generator, got %q", got)
	}
}

func TestNewCreatesOwnedLimiterByDefault(t *testing.T) {
	client := New()
	defer client.Dispose()

	if client.rateLimiter == nil {
		t.Fatal("Expected a default rate limiter")
	}
	if !client.ownsLimiter {
		t.Error("Expected default limiter to be client-owned")
	}
	if client.rateLimiter.capacity != DefaultTokensPerInterval {
		t.Errorf("Expected default capacity %d, got %d", DefaultTokensPerInterval, client.rateLimiter.capacity)
	}
}

func TestWithoutRateLimiterSkipsCreation(t *testing.T) {
	client := New(WithoutRateLimiter())

	if client.rateLimiter != nil {
		t.Error("Expected no limiter")
	}
	if err := client.ValidateConfiguration(); err != nil {
		t.Errorf("Expected disabled limiter to validate, got %v", err)
	}
}

func TestWithRetriesFlowsIntoDefaultPolicy(t *testing.T) {
	client := New(WithoutRateLimiter(), WithRetries(7), WithAllowPostRetry())

	policy, ok := client.retryPolicy.(*DefaultRetryPolicy)
	if !ok {
		t.Fatalf("Expected default policy, got %T", client.retryPolicy)
	}
	if policy.retries != 7 {
		t.Errorf("Expected retries threaded into policy, got %d", policy.retries)
	}
	if !policy.allowPostRetry {
		t.Error("Expected POST retry opt-in threaded into policy")
	}
}
