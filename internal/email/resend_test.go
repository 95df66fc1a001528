package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendCheckInReminder(t *testing.T) {
	var received resendEmail
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", "coach@exhale.test", "https://exhale.test")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendCheckInReminder("alice@example.com", "morning", "abc123")
	if err != nil {
		t.Fatalf("send reminder: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer key", gotAuth)
	}
	if len(received.To) != 1 || received.To[0] != "alice@example.com" {
		t.Errorf("To = %v, want alice@example.com", received.To)
	}
	if received.From != "coach@exhale.test" {
		t.Errorf("From = %q", received.From)
	}
	if received.Subject != "Your morning check-in is ready" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.Text, "https://exhale.test/check-in/abc123") {
		t.Errorf("Text body missing magic link: %q", received.Text)
	}
	// The email must never carry prompt or session content.
	if strings.Contains(received.Text, "craving") || strings.Contains(received.HTML, "craving") {
		t.Error("reminder body leaked prompt content")
	}
}

func TestSendCheckInReminderSubjects(t *testing.T) {
	var received resendEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("test-key", "coach@exhale.test", "https://exhale.test")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	cases := map[string]string{
		"evening":      "Your evening check-in is ready",
		"post_session": "A quick follow-up on today's session",
		"other":        "Your check-in is ready",
	}
	for typ, want := range cases {
		if err := client.SendCheckInReminder("a@b.test", typ, "tok"); err != nil {
			t.Fatalf("send %s: %v", typ, err)
		}
		if received.Subject != want {
			t.Errorf("subject for %s = %q, want %q", typ, received.Subject, want)
		}
	}
}

func TestSendMilestoneReminder(t *testing.T) {
	var received resendEmail
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient("test-key", "coach@exhale.test", "https://exhale.test")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendMilestoneReminder("bob@example.com", "3 days smoke-free", "tok456")
	if err != nil {
		t.Fatalf("send milestone reminder: %v", err)
	}
	if received.Subject != "3 days smoke-free: how are you doing?" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.Text, "/check-in/tok456") {
		t.Errorf("Text body missing magic link: %q", received.Text)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "coach@exhale.test", "https://exhale.test")

	if err := client.SendCheckInReminder("a@b.test", "morning", "tok"); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
	if err := client.SendMilestoneReminder("a@b.test", "3 days", "tok"); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-key", "coach@exhale.test", "https://exhale.test")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	if err := client.SendCheckInReminder("a@b.test", "morning", "tok"); err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("key", "from@test.com", "https://test.com").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewClient("", "from@test.com", "https://test.com").Configured() {
		t.Error("expected Configured() = false")
	}
}

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}
