package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/extract"
	"github.com/fyrsmithlabs/ragd/internal/kb"
	"github.com/fyrsmithlabs/ragd/internal/sanitize"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
	"github.com/fyrsmithlabs/ragd/internal/verify"
)

// handleHealth returns service identity and liveness.
func (s *Server) handleHealth(c echo.Context) error {
	version := s.config.Version
	if version == "" {
		version = "dev"
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: serviceName,
		Version: version,
	})
}

// handleListDiseases lists all disease collections.
func (s *Server) handleListDiseases(c echo.Context) error {
	infos, err := s.kb.Collections(c.Request().Context())
	if err != nil {
		s.logger.Error("listing diseases failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "listing diseases failed")
	}
	if infos == nil {
		infos = []vectorstore.CollectionInfo{}
	}
	return c.JSON(http.StatusOK, infos)
}

// handleCreateDisease creates a disease collection. Creating an existing
// disease is a no-op and still returns the collection.
func (s *Server) handleCreateDisease(c echo.Context) error {
	var req CreateDiseaseRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid create disease request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name field is required")
	}

	if err := s.kb.CreateCollection(c.Request().Context(), name); err != nil {
		s.logger.Error("creating disease failed", zap.String("disease", name), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "creating disease failed")
	}

	return c.JSON(http.StatusCreated, vectorstore.CollectionInfo{
		Name:        sanitize.CollectionName(name),
		DisplayName: name,
		ChunkCount:  0,
	})
}

// handleDeleteDisease deletes a disease collection and all its documents.
func (s *Server) handleDeleteDisease(c echo.Context) error {
	disease := c.Param("disease")

	deleted, err := s.kb.DeleteCollection(c.Request().Context(), disease)
	if err != nil {
		s.logger.Error("deleting disease failed", zap.String("disease", disease), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "deleting disease failed")
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "disease not found")
	}

	return c.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("disease %q deleted", disease),
	})
}

// handleListDocuments lists the documents stored for a disease. An unknown
// disease yields an empty list, matching an existing but empty collection.
func (s *Server) handleListDocuments(c echo.Context) error {
	disease := c.Param("disease")

	docs, err := s.kb.Documents(c.Request().Context(), disease)
	if err != nil {
		s.logger.Error("listing documents failed", zap.String("disease", disease), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "listing documents failed")
	}
	if docs == nil {
		docs = []vectorstore.DocumentInfo{}
	}
	return c.JSON(http.StatusOK, docs)
}

// handleUploadDocument ingests one multipart file into a disease collection.
func (s *Server) handleUploadDocument(c echo.Context) error {
	disease := c.Param("disease")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}

	result, err := s.kb.Ingest(c.Request().Context(), disease, fileHeader.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, kb.ErrNoContent):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error("document ingestion failed",
				zap.String("disease", disease),
				zap.String("filename", fileHeader.Filename),
				zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "document ingestion failed")
		}
	}

	return c.JSON(http.StatusCreated, result)
}

// handleDeleteDocument removes every chunk of a document.
func (s *Server) handleDeleteDocument(c echo.Context) error {
	disease := c.Param("disease")
	documentID := c.Param("id")

	deleted, err := s.kb.DeleteDocument(c.Request().Context(), disease, documentID)
	if err != nil {
		s.logger.Error("deleting document failed",
			zap.String("disease", disease),
			zap.String("document_id", documentID),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "deleting document failed")
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}

	return c.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("document %q deleted", documentID),
	})
}

// handleQuery answers a question against a disease collection, with the
// verification loop unless the request opts out.
func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid query request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Disease) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "disease field is required")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question field is required")
	}
	if req.MaxAttempts < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "max_attempts must not be negative")
	}

	ctx := c.Request().Context()
	useVerification := req.Verify == nil || *req.Verify

	if !useVerification {
		gen, err := s.kb.QuerySimple(ctx, req.Disease, req.Question)
		if err != nil {
			s.logger.Error("simple query failed", zap.String("disease", req.Disease), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
		}
		return c.JSON(http.StatusOK, queryResponseFromGeneration(gen))
	}

	result, err := s.kb.Query(ctx, req.Disease, req.Question, verify.Options{
		MaxAttempts: req.MaxAttempts,
	})
	if err != nil {
		s.logger.Error("query failed", zap.String("disease", req.Disease), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
	}

	return c.JSON(http.StatusOK, queryResponseFromResult(result))
}
