// Package main implements the ragctl CLI for manual operations against the ragd HTTP server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the ragd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "CLI for ragd HTTP server operations",
	Long: `ragctl is a command-line interface for interacting with the ragd HTTP server.
It provides commands for managing disease collections, uploading documents,
and asking questions against the indexed knowledge base.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "ragd server URL")
	rootCmd.AddCommand(healthCmd)
}

// defaultServerURL resolves the server base URL from the RAGD_SERVER
// environment variable, falling back to the local daemon default.
func defaultServerURL() string {
	if url := os.Getenv("RAGD_SERVER"); url != "" {
		return url
	}
	return "http://localhost:8000"
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check ragd server health",
	Long: `Check the health status of the ragd HTTP server.

Examples:
  # Check health
  ragctl health

  # Check health on a different server
  ragctl health --server http://localhost:9000`,
	RunE: runHealth,
}

// HealthResponse matches internal/http/types.go HealthResponse
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ErrorResponse matches internal/http/types.go ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse matches internal/http/types.go MessageResponse
type MessageResponse struct {
	Message string `json:"message"`
}

// apiError converts a non-2xx response into an error, preferring the
// server's {"error": ...} body when it decodes.
func apiError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Server Version: %s\n", healthResp.Version)
	fmt.Printf("Server URL: %s\n", serverURL)

	return nil
}
