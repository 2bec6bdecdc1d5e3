// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// v3probe is a black-box smoke test against a running waitlistd API: it
// exercises the router's RFC 7807 error contract and the
// process_expired_holds/open/confirm wire surface, and prints a JSON
// report of each check.
//
// Usage:
//
//	v3probe -base-url http://localhost:8080
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type ProbeReport struct {
	Timestamp time.Time     `json:"timestamp"`
	BaseURL   string        `json:"base_url"`
	Checks    []CheckResult `json:"checks"`
}

type CheckResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	LatencyMs int64  `json:"latency_ms"`
	Details   string `json:"details,omitempty"`
	Body      string `json:"body,omitempty"`
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

var baseURLFlag = flag.String("base-url", "", "waitlistd base URL, overrides WAITLISTD_PROBE_BASE_URL")

func main() {
	flag.Parse()

	baseURL := *baseURLFlag
	if baseURL == "" {
		baseURL = os.Getenv("WAITLISTD_PROBE_BASE_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	if err := run(baseURL); err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
}

func run(baseURL string) error {
	report := ProbeReport{
		Timestamp: time.Now(),
		BaseURL:   baseURL,
		Checks:    make([]CheckResult, 0),
	}

	runCheck := func(name string, fn func() (string, error)) {
		start := time.Now()
		body, err := fn()
		latency := time.Since(start).Milliseconds()

		res := CheckResult{Name: name, Passed: err == nil, LatencyMs: latency, Body: body}
		if err != nil {
			res.Details = err.Error()
		}
		report.Checks = append(report.Checks, res)
		if err != nil {
			fmt.Printf("FAIL: %s (%s)\n", name, err)
		} else {
			fmt.Printf("PASS: %s (%dms)\n", name, latency)
		}
	}

	runCheck("Healthz", func() (string, error) {
		code, _, body, err := doRequest(http.MethodGet, baseURL+"/healthz", nil)
		if err != nil {
			return "", fmt.Errorf("net error: %w", err)
		}
		if code != http.StatusOK {
			return string(body), fmt.Errorf("unexpected status: %d", code)
		}
		return string(body), nil
	})

	runCheck("Router_404_RFC7807", func() (string, error) {
		return checkRFC7807(baseURL+"/v1/tenants/demo/no-such-route", http.StatusNotFound, "NOT_FOUND")
	})

	runCheck("Router_405_RFC7807", func() (string, error) {
		return checkRFC7807(baseURL+"/v1/process_expired_holds", http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
	})

	runCheck("ProcessExpiredHolds", func() (string, error) {
		code, _, body, err := doRequest(http.MethodPost, baseURL+"/v1/process_expired_holds", bytes.NewBufferString("{}"))
		if err != nil {
			return "", fmt.Errorf("net error: %w", err)
		}
		if code != http.StatusOK {
			return string(body), fmt.Errorf("unexpected status: %d", code)
		}
		var result struct {
			ReleasedCount         int `json:"released_count"`
			CascadeNotifications int `json:"cascade_notifications"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return string(body), fmt.Errorf("decode response: %w", err)
		}
		return string(body), nil
	})

	runCheck("OpenSlot_UnknownSlot_404", func() (string, error) {
		url := fmt.Sprintf("%s/v1/tenants/demo/slots/no-such-slot/open", baseURL)
		code, _, body, err := doRequest(http.MethodPost, url, bytes.NewBufferString("{}"))
		if err != nil {
			return "", fmt.Errorf("net error: %w", err)
		}
		if code != http.StatusNotFound {
			return string(body), fmt.Errorf("unexpected status: %d, want 404", code)
		}
		return string(body), nil
	})

	runCheck("Confirm_InvalidToken_401", func() (string, error) {
		payload, _ := json.Marshal(map[string]string{"token": "not-a-valid-token"})
		url := fmt.Sprintf("%s/v1/tenants/demo/confirm", baseURL)
		code, _, body, err := doRequest(http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("net error: %w", err)
		}
		if code != http.StatusUnauthorized {
			return string(body), fmt.Errorf("unexpected status: %d, want 401", code)
		}
		return string(body), nil
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	for _, c := range report.Checks {
		if !c.Passed {
			return fmt.Errorf("one or more checks failed")
		}
	}
	return nil
}

func doRequest(method, urlStr string, body io.Reader) (int, http.Header, []byte, error) {
	req, err := http.NewRequest(method, urlStr, body)
	if err != nil {
		return 0, nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header, bodyBytes, err
}

func checkRFC7807(urlStr string, expectedStatus int, expectedCode string) (string, error) {
	code, header, body, err := doRequest(http.MethodGet, urlStr, nil)
	if err != nil {
		return "", err
	}
	if code != expectedStatus {
		return string(body), fmt.Errorf("status mismatch: got %d want %d", code, expectedStatus)
	}

	contentType := header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/problem+json") {
		return string(body), fmt.Errorf("content-type mismatch: got %s", contentType)
	}

	var prob struct {
		Code     string `json:"code"`
		Status   int    `json:"status"`
		Instance string `json:"instance"`
	}
	if err := json.Unmarshal(body, &prob); err != nil {
		return string(body), fmt.Errorf("invalid json body: %w", err)
	}
	if prob.Code != expectedCode {
		return string(body), fmt.Errorf("code mismatch: got %s want %s", prob.Code, expectedCode)
	}
	if prob.Status != expectedStatus {
		return string(body), fmt.Errorf("body status mismatch: got %d want %d", prob.Status, expectedStatus)
	}

	u, _ := url.Parse(urlStr)
	if !strings.Contains(prob.Instance, u.Path) {
		return string(body), fmt.Errorf("instance path mismatch: got %s, expected to contain %s", prob.Instance, u.Path)
	}

	return string(body), nil
}
