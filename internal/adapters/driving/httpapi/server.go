// Package httpapi exposes the assistant over HTTP using gin. The wire
// formats match what the web frontend expects.
package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finsync-labs/finsync-server/internal/core/domain"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driving"
	"github.com/finsync-labs/finsync-server/internal/logger"
)

// maxUploadBytes caps the size of a single document upload.
const maxUploadBytes = 50 << 20 // 50 MiB

// SessionStore is the slice of session management the API needs.
type SessionStore interface {
	// Clear drops a session's history, reporting whether it existed.
	Clear(sessionID string) bool
}

// Server wires the core services into HTTP handlers.
type Server struct {
	chat      driving.ChatService
	ingest    driving.IngestService
	documents driving.DocumentService
	sessions  SessionStore
}

// NewServer creates the HTTP server facade.
func NewServer(
	chat driving.ChatService,
	ingest driving.IngestService,
	documents driving.DocumentService,
	sessions SessionStore,
) *Server {
	return &Server{
		chat:      chat,
		ingest:    ingest,
		documents: documents,
		sessions:  sessions,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = maxUploadBytes

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/chat", s.handleChat)
		api.POST("/upload", s.handleUpload)
		api.GET("/documents", s.handleListDocuments)
		api.GET("/documents/:id/status", s.handleDocumentStatus)
		api.DELETE("/sessions/:id", s.handleClearSession)
	}

	return router
}

// chatRequest is the /api/chat request body.
type chatRequest struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"session_id"`
}

// chatResponse is the /api/chat response body.
type chatResponse struct {
	Answer    string            `json:"answer"`
	Trace     []string          `json:"trace"`
	Citations []domain.Citation `json:"citations"`
	SessionID string            `json:"session_id"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	started := time.Now()
	answer, err := s.chat.Chat(c.Request.Context(), req.Query, req.SessionID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	logger.Debug("chat answered in %s (trace: %v)", time.Since(started).Round(time.Millisecond), answer.Trace)

	c.JSON(http.StatusOK, chatResponse{
		Answer:    answer.Answer,
		Trace:     answer.Trace,
		Citations: answer.Citations,
		SessionID: answer.SessionID,
	})
}

// uploadResponse is the /api/upload response body.
type uploadResponse struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}

	record, err := s.ingest.Ingest(c.Request.Context(), data, fileHeader.Filename)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, uploadResponse{
		DocID:    record.ID,
		Filename: record.Filename,
		Message:  "Document processed successfully",
	})
}

// documentStatus is the per-document wire format.
type documentStatus struct {
	DocID         string `json:"doc_id"`
	Filename      string `json:"filename"`
	Status        string `json:"status"`
	FragmentCount int    `json:"chunk_count"`
	Error         string `json:"error,omitempty"`
}

func toDocumentStatus(record *domain.DocumentRecord) documentStatus {
	return documentStatus{
		DocID:         record.ID,
		Filename:      record.Filename,
		Status:        string(record.Status),
		FragmentCount: record.FragmentCount,
		Error:         record.Error,
	}
}

func (s *Server) handleListDocuments(c *gin.Context) {
	records, err := s.documents.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	docs := make([]documentStatus, 0, len(records))
	for i := range records {
		docs = append(docs, toDocumentStatus(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) handleDocumentStatus(c *gin.Context) {
	record, err := s.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentStatus(record))
}

func (s *Server) handleClearSession(c *gin.Context) {
	if s.sessions.Clear(c.Param("id")) {
		c.JSON(http.StatusOK, gin.H{"message": "session cleared"})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNoExtractableText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrEmbeddingFailed):
		logger.Warn("upstream service failure: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Warn("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
