// Package main implements document commands for the ragctl CLI.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(documentsCmd)

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
}

// uploadCmd uploads a document into a disease collection
var uploadCmd = &cobra.Command{
	Use:   "upload <disease> <file>",
	Short: "Upload a document into a disease collection",
	Long: `Upload a document file into a disease collection.

The server extracts text from the file, splits it into chunks, and indexes
the chunks for retrieval. Supported formats are .txt, .md, .csv and .json.
The collection is created on first upload if it does not exist.

Examples:
  # Upload a guideline document
  ragctl upload covid_19 guidelines.md

  # Upload to a different server
  ragctl upload --server http://localhost:9000 influenza notes.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

// documentsCmd is the parent command for document operations
var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage documents in a disease collection",
	Long:  `List and delete the documents indexed in a disease collection.`,
}

// documentsListCmd lists documents in a collection
var documentsListCmd = &cobra.Command{
	Use:   "list <disease>",
	Short: "List documents in a disease collection",
	Long: `List the documents indexed in a disease collection with their
chunk counts.

Examples:
  ragctl documents list covid_19`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsList,
}

// documentsDeleteCmd deletes a document from a collection
var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <disease> <document-id>",
	Short: "Delete a document from a disease collection",
	Long: `Delete a document and all of its chunks from a disease collection.

Find the document id with: ragctl documents list <disease>

Examples:
  ragctl documents delete covid_19 3f8a2c1e-9f4b-4d66-a2d0-5b7c9e1f0a23`,
	Args: cobra.ExactArgs(2),
	RunE: runDocumentsDelete,
}

// DocumentInfo matches internal/vectorstore DocumentInfo as served by the
// documents endpoints.
type DocumentInfo struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// IngestResult matches internal/kb IngestResult
type IngestResult struct {
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	Disease     string `json:"disease"`
	ChunksAdded int    `json:"chunks_added"`
}

// uploadDocument sends a file to the server as multipart form data.
func uploadDocument(disease, path string) (*IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/diseases/%s/documents", serverURL, url.PathEscape(disease))

	req, err := http.NewRequest(http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	// Embedding every chunk takes a while for large documents.
	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp)
	}

	var result IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// fetchDocuments retrieves the documents of a disease collection.
func fetchDocuments(disease string) ([]DocumentInfo, error) {
	endpoint := fmt.Sprintf("%s/api/v1/diseases/%s/documents", serverURL, url.PathEscape(disease))

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var docs []DocumentInfo
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return docs, nil
}

// deleteDocument removes a document from a disease collection.
func deleteDocument(disease, documentID string) (*MessageResponse, error) {
	endpoint := fmt.Sprintf("%s/api/v1/diseases/%s/documents/%s",
		serverURL, url.PathEscape(disease), url.PathEscape(documentID))

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

func runUpload(cmd *cobra.Command, args []string) error {
	result, err := uploadDocument(args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Uploaded %s to %s\n", result.Filename, result.Disease)
	fmt.Printf("Document ID: %s\n", result.DocumentID)
	fmt.Printf("Chunks added: %d\n", result.ChunksAdded)

	return nil
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	docs, err := fetchDocuments(args[0])
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Printf("No documents found in %s.\n", args[0])
		return nil
	}

	fmt.Printf("%-38s %-30s %s\n", "DOCUMENT ID", "FILENAME", "CHUNKS")
	fmt.Printf("%s\n", strings.Repeat("-", 78))
	for _, d := range docs {
		fmt.Printf("%-38s %-30s %d\n", d.DocumentID, d.Filename, d.ChunkCount)
	}

	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	msg, err := deleteDocument(args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Println(msg.Message)
	return nil
}
