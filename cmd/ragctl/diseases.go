// Package main implements disease collection commands for the ragctl CLI.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(diseasesCmd)

	diseasesCmd.AddCommand(diseasesListCmd)
	diseasesCmd.AddCommand(diseasesCreateCmd)
	diseasesCmd.AddCommand(diseasesDeleteCmd)
}

// diseasesCmd is the parent command for disease collection operations
var diseasesCmd = &cobra.Command{
	Use:   "diseases",
	Short: "Manage disease collections",
	Long: `Manage the per-disease document collections on the ragd server.

Each disease owns an isolated collection; documents uploaded to one disease
are never retrieved for another.`,
}

// diseasesListCmd lists all disease collections
var diseasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List disease collections",
	Long: `List all disease collections with their chunk counts.

Examples:
  ragctl diseases list
  ragctl diseases list --server http://localhost:9000`,
	RunE: runDiseasesList,
}

// diseasesCreateCmd creates a disease collection
var diseasesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a disease collection",
	Long: `Create an empty disease collection.

The name is sanitized into a collection identifier; the original spelling is
kept as the display name.

Examples:
  ragctl diseases create "COVID-19"
  ragctl diseases create influenza`,
	Args: cobra.ExactArgs(1),
	RunE: runDiseasesCreate,
}

// diseasesDeleteCmd deletes a disease collection
var diseasesDeleteCmd = &cobra.Command{
	Use:   "delete <disease>",
	Short: "Delete a disease collection",
	Long: `Delete a disease collection and every document in it.

Examples:
  ragctl diseases delete influenza`,
	Args: cobra.ExactArgs(1),
	RunE: runDiseasesDelete,
}

// CollectionInfo matches internal/vectorstore CollectionInfo as served by
// the diseases endpoints.
type CollectionInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	ChunkCount  int    `json:"chunk_count"`
}

// CreateDiseaseRequest matches internal/http/types.go CreateDiseaseRequest
type CreateDiseaseRequest struct {
	Name string `json:"name"`
}

// fetchDiseases retrieves all disease collections from the server.
func fetchDiseases() ([]CollectionInfo, error) {
	endpoint := fmt.Sprintf("%s/api/v1/diseases", serverURL)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var diseases []CollectionInfo
	if err := json.NewDecoder(resp.Body).Decode(&diseases); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return diseases, nil
}

// createDisease creates a collection on the server.
func createDisease(name string) (*CollectionInfo, error) {
	reqJSON, err := json.Marshal(CreateDiseaseRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/diseases", serverURL)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}

	var info CollectionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &info, nil
}

// deleteDisease removes a collection from the server.
func deleteDisease(disease string) (*MessageResponse, error) {
	endpoint := fmt.Sprintf("%s/api/v1/diseases/%s", serverURL, url.PathEscape(disease))

	req, err := http.NewRequest(http.MethodDelete, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var msg MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &msg, nil
}

func runDiseasesList(cmd *cobra.Command, args []string) error {
	diseases, err := fetchDiseases()
	if err != nil {
		return err
	}

	if len(diseases) == 0 {
		fmt.Println("No disease collections found.")
		return nil
	}

	fmt.Printf("%-30s %-30s %s\n", "NAME", "DISPLAY NAME", "CHUNKS")
	fmt.Printf("%s\n", strings.Repeat("-", 70))
	for _, d := range diseases {
		fmt.Printf("%-30s %-30s %d\n", d.Name, d.DisplayName, d.ChunkCount)
	}

	return nil
}

func runDiseasesCreate(cmd *cobra.Command, args []string) error {
	info, err := createDisease(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Created disease %q (collection %s)\n", info.DisplayName, info.Name)
	return nil
}

func runDiseasesDelete(cmd *cobra.Command, args []string) error {
	msg, err := deleteDisease(args[0])
	if err != nil {
		return err
	}

	fmt.Println(msg.Message)
	return nil
}
