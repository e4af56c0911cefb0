package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/bound/backend/internal/manager"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/state"
	"github.com/MarcoPoloResearchLab/bound/backend/internal/workspace"
)

const (
	maxImportBytes    = 32 << 20
	heartbeatInterval = 30 * time.Second
)

var errMissingWorkspace = errors.New("workspace dependency required")

type Dependencies struct {
	Workspace *workspace.Workspace
	Events    *ChangeDispatcher
	Logger    *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Workspace == nil {
		return nil, errMissingWorkspace
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := deps.Events
	if events == nil {
		events = NewChangeDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		workspace: deps.Workspace,
		events:    events,
		logger:    logger,
	}

	router.GET("/state", handler.handleState)
	router.GET("/events", handler.handleEvents)

	router.POST("/areas", handler.handleCreateArea)
	router.PATCH("/areas/:areaId", handler.handleUpdateArea)
	router.DELETE("/areas/:areaId", handler.handleDeleteArea)
	router.PUT("/selection/area", handler.handleSelectArea)

	router.POST("/contents", handler.handleCreateContent)
	router.PATCH("/contents/:contentId", handler.handleUpdateContent)
	router.DELETE("/contents/:contentId", handler.handleDeleteContent)
	router.POST("/contents/:contentId/open", handler.handleOpenContent)
	router.POST("/contents/:contentId/close", handler.handleCloseContent)

	router.PUT("/contents/:contentId/shapes", handler.handleReplaceShapes)
	router.POST("/contents/:contentId/shapes", handler.handleAddShape)
	router.PATCH("/contents/:contentId/shapes/:shapeId", handler.handleUpdateShape)
	router.DELETE("/contents/:contentId/shapes/:shapeId", handler.handleRemoveShape)

	router.POST("/contents/:contentId/undo", handler.handleUndo)
	router.POST("/contents/:contentId/redo", handler.handleRedo)
	router.GET("/contents/:contentId/history", handler.handleHistoryStatus)

	router.POST("/contents/:contentId/properties", handler.handleAddProperty)
	router.PATCH("/contents/:contentId/properties/:propertyId", handler.handleUpdateProperty)
	router.DELETE("/contents/:contentId/properties/:propertyId", handler.handleRemoveProperty)

	router.POST("/links", handler.handleCreateLink)
	router.DELETE("/links/:linkId", handler.handleDeleteLink)

	router.GET("/export", handler.handleExport)
	router.POST("/import", handler.handleImport)
	router.GET("/storage/usage", handler.handleStorageUsage)
	router.POST("/flush", handler.handleFlush)

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	})
}

type httpHandler struct {
	workspace *workspace.Workspace
	events    *ChangeDispatcher
	logger    *zap.Logger
}

// Request bodies are fragments of the document model, so their fields keep
// the document's camelCase naming.

type createAreaRequest struct {
	Name string `json:"name"`
}

type updateAreaRequest struct {
	Name            *string         `json:"name"`
	Description     *string         `json:"description"`
	BackgroundColor *string         `json:"backgroundColor"`
	NodePosition    *state.Position `json:"nodePosition"`
}

type selectAreaRequest struct {
	AreaID string `json:"areaId"`
}

type createContentRequest struct {
	AreaID string `json:"areaId"`
	Title  string `json:"title"`
}

type updateContentRequest struct {
	Title        *string         `json:"title"`
	AreaID       *string         `json:"areaId"`
	Tags         *[]string       `json:"tags"`
	NodePosition *state.Position `json:"nodePosition"`
}

type replaceShapesRequest struct {
	Shapes *[]state.Shape `json:"shapes"`
}

type updateShapeRequest struct {
	Type      *state.ShapeType  `json:"type"`
	Position  *state.Position   `json:"position"`
	Dimension *state.Dimension  `json:"dimension"`
	Points    []float64         `json:"points"`
	Style     *state.ShapeStyle `json:"style"`
	Text      *string           `json:"text"`
	GroupID   *string           `json:"groupId"`
}

type createLinkRequest struct {
	FromContentID string `json:"fromContentId"`
	ToContentID   string `json:"toContentId"`
	Type          string `json:"type"`
}

type addPropertyRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type updatePropertyRequest struct {
	Name  *string `json:"name"`
	Value *any    `json:"value"`
}

func (h *httpHandler) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, h.workspace.State())
}

func (h *httpHandler) handleCreateArea(c *gin.Context) {
	var request createAreaRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	area, err := h.workspace.CreateArea(request.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("area", area.ID)
	c.JSON(http.StatusCreated, area)
}

func (h *httpHandler) handleUpdateArea(c *gin.Context) {
	var request updateAreaRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	area, err := h.workspace.UpdateArea(c.Param("areaId"), manager.AreaUpdates{
		Name:            request.Name,
		Description:     request.Description,
		BackgroundColor: request.BackgroundColor,
		NodePosition:    request.NodePosition,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("area", area.ID)
	c.JSON(http.StatusOK, area)
}

func (h *httpHandler) handleDeleteArea(c *gin.Context) {
	areaID := c.Param("areaId")
	result := h.workspace.DeleteArea(areaID)
	if !result.Deleted {
		c.JSON(http.StatusNotFound, gin.H{"deleted": false, "reason": result.Reason})
		return
	}
	h.publishChange("area", areaID)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *httpHandler) handleSelectArea(c *gin.Context) {
	var request selectAreaRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.workspace.SelectArea(request.AreaID); err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("selection")
	c.JSON(http.StatusOK, gin.H{"currentAreaId": request.AreaID})
}

func (h *httpHandler) handleCreateContent(c *gin.Context) {
	var request createContentRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.AreaID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	content, err := h.workspace.CreateContent(request.AreaID, request.Title)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusCreated, content)
}

func (h *httpHandler) handleUpdateContent(c *gin.Context) {
	var request updateContentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	content, err := h.workspace.UpdateContent(c.Param("contentId"), manager.ContentUpdates{
		Title:        request.Title,
		AreaID:       request.AreaID,
		Tags:         request.Tags,
		NodePosition: request.NodePosition,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusOK, content)
}

func (h *httpHandler) handleDeleteContent(c *gin.Context) {
	contentID := c.Param("contentId")
	result := h.workspace.DeleteContent(contentID)
	if !result.Deleted {
		c.JSON(http.StatusNotFound, gin.H{"deleted": false, "reason": result.Reason})
		return
	}
	h.publishChange("content", contentID)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *httpHandler) handleOpenContent(c *gin.Context) {
	content, err := h.workspace.OpenContent(c.Param("contentId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusOK, content)
}

func (h *httpHandler) handleCloseContent(c *gin.Context) {
	content, err := h.workspace.CloseContent(c.Param("contentId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusOK, content)
}

func (h *httpHandler) handleReplaceShapes(c *gin.Context) {
	var request replaceShapesRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.Shapes == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	content, err := h.workspace.PushShapes(c.Param("contentId"), *request.Shapes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusOK, content)
}

func (h *httpHandler) handleAddShape(c *gin.Context) {
	var shape state.Shape
	if err := c.ShouldBindJSON(&shape); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	content, err := h.workspace.AddShape(c.Param("contentId"), shape)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusOK, content)
}

func (h *httpHandler) handleUpdateShape(c *gin.Context) {
	var request updateShapeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	content, err := h.workspace.UpdateShape(c.Param("contentId"), c.Param("shapeId"), manager.ShapeUpdates{
		Type:      request.Type,
		Position:  request.Position,
		Dimension: request.Dimension,
		Points:    request.Points,
		Style:     request.Style,
		Text:      request.Text,
		GroupID:   request.GroupID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusOK, content)
}

func (h *httpHandler) handleRemoveShape(c *gin.Context) {
	content, err := h.workspace.RemoveShape(c.Param("contentId"), c.Param("shapeId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusOK, content)
}

func (h *httpHandler) handleUndo(c *gin.Context) {
	content, applied, err := h.workspace.Undo(c.Param("contentId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if applied {
		h.publishChange("content", content.ID)
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "content": content})
}

func (h *httpHandler) handleRedo(c *gin.Context) {
	content, applied, err := h.workspace.Redo(c.Param("contentId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if applied {
		h.publishChange("content", content.ID)
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "content": content})
}

func (h *httpHandler) handleHistoryStatus(c *gin.Context) {
	undoSteps, redoSteps, open := h.workspace.HistoryStatus(c.Param("contentId"))
	c.JSON(http.StatusOK, gin.H{
		"undoSteps": undoSteps,
		"redoSteps": redoSteps,
		"open":      open,
	})
}

func (h *httpHandler) handleAddProperty(c *gin.Context) {
	var request addPropertyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	content, err := h.workspace.AddProperty(c.Param("contentId"), request.Name, state.PropertyType(request.Type), request.Value)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusOK, content)
}

func (h *httpHandler) handleUpdateProperty(c *gin.Context) {
	var request updatePropertyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	content, err := h.workspace.UpdateProperty(c.Param("contentId"), c.Param("propertyId"), manager.PropertyUpdates{
		Name:  request.Name,
		Value: request.Value,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusOK, content)
}

func (h *httpHandler) handleRemoveProperty(c *gin.Context) {
	content, err := h.workspace.RemoveProperty(c.Param("contentId"), c.Param("propertyId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("content", content.ID)
	c.JSON(http.StatusOK, content)
}

func (h *httpHandler) handleCreateLink(c *gin.Context) {
	var request createLinkRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.FromContentID == "" || request.ToContentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	link, err := h.workspace.CreateLink(request.FromContentID, request.ToContentID, state.LinkType(request.Type))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("link", link.ID)
	c.JSON(http.StatusCreated, link)
}

func (h *httpHandler) handleDeleteLink(c *gin.Context) {
	linkID := c.Param("linkId")
	result := h.workspace.DeleteLink(linkID)
	if !result.Deleted {
		c.JSON(http.StatusNotFound, gin.H{"deleted": false, "reason": result.Reason})
		return
	}
	h.publishChange("link", linkID)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *httpHandler) handleExport(c *gin.Context) {
	compress, _ := strconv.ParseBool(c.Query("compress"))
	payload, err := h.workspace.Export(compress)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="document.bound"`)
	c.Data(http.StatusOK, "application/json", payload)
}

func (h *httpHandler) handleImport(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
		return
	}
	if len(payload) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	document, err := h.workspace.Import(c.Request.Context(), payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishChange("document")
	c.JSON(http.StatusOK, document)
}

func (h *httpHandler) handleStorageUsage(c *gin.Context) {
	bytes, err := h.workspace.StorageSize(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bytes": bytes})
}

func (h *httpHandler) handleFlush(c *gin.Context) {
	if err := h.workspace.Flush(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleEvents(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	stream, cancel := h.events.Subscribe(c.Request.Context())
	defer cancel()

	heartbeats := time.NewTicker(heartbeatInterval)
	defer heartbeats.Stop()

	c.Writer.Flush()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, open := <-stream:
			if !open {
				return
			}
			c.SSEvent(event.EventType, gin.H{
				"scope":     event.Scope,
				"entityIds": event.EntityIDs,
				"timestamp": event.Timestamp.UnixMilli(),
			})
			c.Writer.Flush()
		case <-heartbeats.C:
			c.SSEvent(eventHeartbeat, gin.H{"source": eventSource})
			c.Writer.Flush()
		}
	}
}

func (h *httpHandler) publishChange(scope string, entityIDs ...string) {
	h.events.Publish(ChangeEvent{
		EventType: EventDocumentChanged,
		Scope:     scope,
		EntityIDs: entityIDs,
		Timestamp: time.Now(),
	})
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	var validation *state.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "problems": validation.Problems})
	case errors.Is(err, state.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "detail": err.Error()})
	case errors.Is(err, state.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": err.Error()})
	case errors.Is(err, state.ErrIntegrity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "integrity_check_failed", "detail": err.Error()})
	case errors.Is(err, state.ErrParse):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_file", "detail": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
