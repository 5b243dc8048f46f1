package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"public-chat/internal/models"
	"public-chat/internal/observability"
	"public-chat/internal/realtime"
	"public-chat/internal/repositories"
	"public-chat/internal/telemetry"
)

// DocumentHandler serves collection documents and announces inserts on the realtime bus.
type DocumentHandler struct {
	docs  repositories.DocumentRepository
	bus   realtime.Bus
	audit *telemetry.AuditEmitter
	now   func() time.Time
}

// NewDocumentHandler builds a DocumentHandler.
func NewDocumentHandler(docs repositories.DocumentRepository, bus realtime.Bus, audit *telemetry.AuditEmitter) *DocumentHandler {
	return &DocumentHandler{docs: docs, bus: bus, audit: audit, now: time.Now}
}

func collectionParams(c *gin.Context) (string, string, bool) {
	databaseID, collectionID := c.Param("database_id"), c.Param("collection_id")
	if !validID(databaseID) || !validID(collectionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid database or collection id"})
		return "", "", false
	}
	return databaseID, collectionID, true
}

// ListDocuments returns documents filtered by queries[].
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	databaseID, collectionID, ok := collectionParams(c)
	if !ok {
		return
	}

	opts, err := parseListQueries(c.QueryArray("queries[]"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	docs, err := h.docs.ListDocuments(c.Request.Context(), databaseID, collectionID, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load documents"})
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	c.JSON(http.StatusOK, gin.H{"total": len(docs), "documents": docs})
}

// GetDocument returns a single document.
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	databaseID, collectionID, ok := collectionParams(c)
	if !ok {
		return
	}

	doc, err := h.docs.GetDocument(c.Request.Context(), databaseID, collectionID, c.Param("document_id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrDocumentNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// CreateDocument stores a document and broadcasts its create event.
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	databaseID, collectionID, ok := collectionParams(c)
	if !ok {
		return
	}

	var req struct {
		DocumentID string         `json:"documentId" binding:"required"`
		Data       map[string]any `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	documentID, err := resolveID(req.DocumentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for key := range req.Data {
		if strings.HasPrefix(key, "$") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "attribute names may not start with $: " + key})
			return
		}
	}

	now := h.now().UTC().Truncate(time.Millisecond)
	doc, err := h.docs.CreateDocument(c.Request.Context(), models.Document{
		ID:           documentID,
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		Data:         req.Data,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDocumentExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "document already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store document"})
		return
	}

	observability.IncDocumentCreated(databaseID, collectionID)
	// The write already succeeded; a lost broadcast only delays other readers.
	if err := h.bus.Publish(c.Request.Context(), models.DocumentCreatedEvent(doc, now)); err != nil {
		log.Printf("realtime publish failed document=%s: %v", doc.ID, err)
	}

	h.audit.Emit(c.Request.Context(), "INFO", telemetry.ActionDocumentCreated, databaseID+"/"+collectionID+"/"+doc.ID, "document created", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, doc)
}
