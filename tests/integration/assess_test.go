//go:build integration

// Package integration provides end-to-end tests against a running Heron
// server.
//
// These tests exercise the complete scoring pipeline:
//
//	Observations -> Rules -> Score -> Tier -> Recommendation bundle
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// The server must run with the built-in domain packs and no overrides.
// Set HERON_TEST_URL to target a server other than http://localhost:8080.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL string
	UserID  string
}

func getTestConfig(t *testing.T) TestConfig {
	t.Helper()

	baseURL := os.Getenv("HERON_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	resp, err := http.Get(baseURL + "/ready")
	if err != nil {
		t.Skipf("heron not reachable at %s: %v", baseURL, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("heron at %s is not ready: status %d", baseURL, resp.StatusCode)
	}

	// A fresh user per test keeps tracker history and rate limits apart.
	return TestConfig{
		BaseURL: baseURL,
		UserID:  "it-" + uuid.NewString(),
	}
}

// Assessment mirrors the fields of the assessment response the tests use.
type Assessment struct {
	ID             string           `json:"id"`
	Domain         string           `json:"domain"`
	RiskLevel      string           `json:"riskLevel"`
	Score          int              `json:"score"`
	MaxScore       int              `json:"maxScore"`
	RiskPercentage int              `json:"riskPercentage"`
	WellbeingScore *int             `json:"wellbeingScore"`
	Factors        []map[string]any `json:"factors"`
	UrgentActions  []string         `json:"urgentActions"`
	ShortCircuit   string           `json:"shortCircuit"`
	Observations   map[string]any   `json:"observations"`
}

func call(t *testing.T, cfg TestConfig, method, path string, body any, want int) []byte {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, cfg.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", cfg.UserID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, want, resp.StatusCode, respBody)
	}
	return respBody
}

func assess(t *testing.T, cfg TestConfig, domainID string, obs map[string]any) Assessment {
	t.Helper()

	body := call(t, cfg, http.MethodPost, "/assess/"+domainID, map[string]any{"observations": obs}, http.StatusOK)
	var a Assessment
	if err := json.Unmarshal(body, &a); err != nil {
		t.Fatalf("failed to unmarshal assessment: %v (body: %s)", err, body)
	}
	return a
}

func TestPCOS_NoSymptomsIsLow(t *testing.T) {
	cfg := getTestConfig(t)

	a := assess(t, cfg, "pcos", map[string]any{
		"age": 28, "heightCm": 165, "weightKg": 58, "cycleLength": 28,
		"missedPeriods": "no", "acne": "none", "hairFall": "no",
	})

	if a.RiskLevel != "Low" || a.Score != 0 {
		t.Errorf("expected Low with score 0, got %s/%d", a.RiskLevel, a.Score)
	}
	if len(a.UrgentActions) != 0 {
		t.Errorf("Low must not carry urgent actions, got %v", a.UrgentActions)
	}
	if bmi, ok := a.Observations["bmi"].(float64); !ok || bmi != 21.3 {
		t.Errorf("expected derived bmi 21.3, got %v", a.Observations["bmi"])
	}
}

func TestPCOS_ManySymptomsIsHigh(t *testing.T) {
	cfg := getTestConfig(t)

	a := assess(t, cfg, "pcos", map[string]any{
		"age": 25, "heightCm": 160, "weightKg": 70, "cycleLength": 40,
		"missedPeriods": "yes", "acne": "severe", "hairFall": "yes",
		"weightGainRecently": "yes", "familyHistoryPCOS": "yes",
	})

	if a.RiskLevel != "High" || a.Score != 16 {
		t.Errorf("expected High with score 16, got %s/%d", a.RiskLevel, a.Score)
	}
	if len(a.UrgentActions) == 0 {
		t.Error("High must carry urgent actions")
	}
	if a.RiskPercentage != a.Score*100/a.MaxScore {
		t.Errorf("risk percentage %d does not match %d/%d", a.RiskPercentage, a.Score, a.MaxScore)
	}
	if len(a.Factors) != 7 || a.Factors[0]["ruleId"] != "bmi-overweight" {
		t.Errorf("unexpected factors %v", a.Factors)
	}
}

func TestPCOS_TierBoundaries(t *testing.T) {
	cfg := getTestConfig(t)

	// Moderate starts at exactly 5 points.
	cases := []struct {
		name string
		obs  map[string]any
		tier string
	}{
		{"FourIsLow", map[string]any{"hairFall": "yes", "weightGainRecently": "yes"}, "Low"},
		{"FiveIsModerate", map[string]any{"missedPeriods": "yes", "periodsLateOften": "yes"}, "Moderate"},
		{"NineIsHigh", map[string]any{"missedPeriods": "yes", "facialHair": "yes", "cycleLength": 45}, "High"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := assess(t, cfg, "pcos", tc.obs)
			if a.RiskLevel != tc.tier {
				t.Errorf("expected %s, got %s (score %d)", tc.tier, a.RiskLevel, a.Score)
			}
		})
	}
}

func TestVaccine_NothingDueShortCircuits(t *testing.T) {
	cfg := getTestConfig(t)

	a := assess(t, cfg, "vaccine", map[string]any{
		"expectedVaccines": 0, "completedVaccines": 0, "overdueVaccineCount": 0,
	})

	if a.RiskLevel != "Low" || a.ShortCircuit == "" {
		t.Errorf("expected short-circuited Low, got %s (%q)", a.RiskLevel, a.ShortCircuit)
	}
}

func TestMoodTracker_CrisisIsHigh(t *testing.T) {
	cfg := getTestConfig(t)

	call(t, cfg, http.MethodPost, "/trackers/mood", map[string]any{
		"mood": 2, "anxiety": 8, "stress": 8, "energy": 2, "crisis": true,
	}, http.StatusCreated)

	body := call(t, cfg, http.MethodGet, "/trackers/mood/assessment", nil, http.StatusOK)
	var a Assessment
	if err := json.Unmarshal(body, &a); err != nil {
		t.Fatalf("failed to unmarshal assessment: %v", err)
	}

	if a.RiskLevel != "High" {
		t.Errorf("expected High, got %s (score %d)", a.RiskLevel, a.Score)
	}
	if a.WellbeingScore == nil || *a.WellbeingScore != 0 {
		t.Errorf("expected wellbeing 0, got %v", a.WellbeingScore)
	}

	history := call(t, cfg, http.MethodGet, "/assessments?domain=mood", nil, http.StatusOK)
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(history, &list); err != nil {
		t.Fatalf("failed to unmarshal history: %v", err)
	}
	if list.Count < 1 {
		t.Error("expected the tracker assessment in history")
	}
}

func TestAdherence_NoHistoryIsLow(t *testing.T) {
	cfg := getTestConfig(t)

	body := call(t, cfg, http.MethodGet, "/trackers/adherence/assessment", nil, http.StatusOK)
	var a Assessment
	if err := json.Unmarshal(body, &a); err != nil {
		t.Fatalf("failed to unmarshal assessment: %v", err)
	}
	if a.RiskLevel != "Low" || a.ShortCircuit == "" {
		t.Errorf("expected short-circuited Low, got %s", a.RiskLevel)
	}
}

func TestUnknownDomain(t *testing.T) {
	cfg := getTestConfig(t)
	call(t, cfg, http.MethodPost, "/assess/diabetes", map[string]any{"observations": map[string]any{}}, http.StatusNotFound)
}

func TestMissingUser(t *testing.T) {
	cfg := getTestConfig(t)

	resp, err := http.Get(fmt.Sprintf("%s/domains", cfg.BaseURL))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without X-User-ID, got %d", resp.StatusCode)
	}
}
