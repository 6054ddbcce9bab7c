// Package main implements the query command for the ragctl CLI.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// querySimple skips the verification loop
	querySimple bool
	// queryMaxAttempts overrides the server's verification attempt limit
	queryMaxAttempts int
)

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().BoolVar(&querySimple, "simple", false, "Skip answer verification (single retrieval pass)")
	queryCmd.Flags().IntVar(&queryMaxAttempts, "max-attempts", 0, "Maximum verification attempts (0 uses the server default)")
}

// queryCmd asks a question against a disease collection
var queryCmd = &cobra.Command{
	Use:   "query <disease> <question>",
	Short: "Ask a question against a disease collection",
	Long: `Ask a question against the documents of a disease collection.

By default the server verifies the answer against the retrieved context and
retries with refined queries until it is confident. Use --simple for a
single unverified retrieval pass.

Examples:
  # Verified answer
  ragctl query covid_19 "What are the isolation guidelines?"

  # Single pass without verification
  ragctl query --simple covid_19 "What are the isolation guidelines?"

  # Allow more refinement attempts
  ragctl query --max-attempts 8 covid_19 "Which variants are mentioned?"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runQuery,
}

// QueryRequest matches internal/http/types.go QueryRequest
type QueryRequest struct {
	Disease     string `json:"disease"`
	Question    string `json:"question"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	Verify      *bool  `json:"verify,omitempty"`
}

// Reference matches internal/rag Reference as served by the query endpoint.
type Reference struct {
	SourceID       int     `json:"source_id"`
	Filename       string  `json:"filename"`
	Excerpt        string  `json:"excerpt"`
	RelevanceScore float32 `json:"relevance_score"`
}

// Attempt matches internal/verify Attempt as served by the query endpoint.
type Attempt struct {
	Number     int      `json:"attempt"`
	Query      string   `json:"query_used,omitempty"`
	Confidence float64  `json:"confidence"`
	Verified   bool     `json:"is_verified"`
	Issues     []string `json:"issues,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
	NoContext  bool     `json:"no_context,omitempty"`
}

// QueryResponse matches internal/http/types.go QueryResponse
type QueryResponse struct {
	Answer       string      `json:"answer"`
	Verified     bool        `json:"verified"`
	Confidence   float64     `json:"confidence"`
	References   []Reference `json:"references"`
	Disease      string      `json:"disease"`
	Attempts     []Attempt   `json:"attempts,omitempty"`
	Reasoning    string      `json:"verification_reasoning,omitempty"`
	FinalAttempt int         `json:"final_attempt,omitempty"`
	Warning      string      `json:"warning,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// postQuery sends a query request to the server.
func postQuery(req QueryRequest) (*QueryResponse, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/query", serverURL)

	// Verification runs make several LLM round trips.
	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var queryResp QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &queryResp, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryMaxAttempts < 0 {
		return fmt.Errorf("--max-attempts must not be negative")
	}

	req := QueryRequest{
		Disease:     args[0],
		Question:    strings.Join(args[1:], " "),
		MaxAttempts: queryMaxAttempts,
	}
	if querySimple {
		verify := false
		req.Verify = &verify
	}

	resp, err := postQuery(req)
	if err != nil {
		return err
	}

	printQueryResponse(resp, querySimple)
	return nil
}

// printQueryResponse renders the answer and supporting detail. The simple
// path has no verification result, so its status line is omitted.
func printQueryResponse(resp *QueryResponse, simple bool) {
	fmt.Println(resp.Answer)

	if !simple {
		status := "no"
		if resp.Verified {
			status = "yes"
		}
		fmt.Printf("\nVerified: %s (confidence %.2f, %d attempt(s))\n",
			status, resp.Confidence, len(resp.Attempts))
		if resp.Reasoning != "" {
			fmt.Printf("Reasoning: %s\n", resp.Reasoning)
		}
	}

	if len(resp.References) > 0 {
		fmt.Printf("\nReferences:\n")
		for _, ref := range resp.References {
			fmt.Printf("  [%d] %s\n", ref.SourceID, ref.Filename)
		}
	}

	if resp.Warning != "" {
		fmt.Fprintf(os.Stderr, "\n[ragctl] Warning: %s\n", resp.Warning)
	}
}
