// Package api_test runs the scheduling workflow against a live environment.
// Every test skips unless ECARE_BASE_URL, ECARE_TENANT_ID, ECARE_USERNAME and
// ECARE_PASSWORD are set.
package api_test

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

var (
	baseURL  = os.Getenv("ECARE_BASE_URL")
	tenant   = os.Getenv("ECARE_TENANT_ID")
	username = os.Getenv("ECARE_USERNAME")
	password = os.Getenv("ECARE_PASSWORD")
)

func liveConfigured() bool {
	return baseURL != "" && tenant != "" && username != "" && password != ""
}

func requireLive(t *testing.T) {
	t.Helper()
	if !liveConfigured() {
		t.Skip("live environment not configured")
	}
}

func checkAPIServer() error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL)
	if err != nil {
		return fmt.Errorf("API server not reachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func TestMain(m *testing.M) {
	if liveConfigured() {
		maxRetries := 5
		for i := 0; i < maxRetries; i++ {
			err := checkAPIServer()
			if err == nil {
				break
			}
			if i == maxRetries-1 {
				fmt.Printf("Error: %v\nMake sure %s is reachable\n", err, baseURL)
				os.Exit(1)
			}
			fmt.Printf("Waiting for API server (attempt %d/%d)...\n", i+1, maxRetries)
			time.Sleep(2 * time.Second)
		}
	}

	os.Exit(m.Run())
}
