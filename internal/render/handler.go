package render

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-typeset/internal/artifacts"
	"resume-typeset/internal/shared/server/middleware"
	"resume-typeset/internal/shared/server/respond"
	"resume-typeset/internal/shared/telemetry"
	"resume-typeset/internal/templates"
	"resume-typeset/resume/model"
)

// Handler wires HTTP handlers to the render engine and artifact store.
type Handler struct {
	Engine *Engine
	Store  *artifacts.Store
}

// NewHandler constructs a Handler.
func NewHandler(engine *Engine, store *artifacts.Store) *Handler {
	return &Handler{Engine: engine, Store: store}
}

// RegisterRoutes attaches render, artifact, library, and template routes to
// the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/renders", h.render)
	rg.GET("/renders/status", h.status)
	rg.GET("/artifacts/current", h.currentMeta)
	rg.GET("/artifacts/current/download", h.currentDownload)
	rg.POST("/artifacts/current/persist", h.persist)
	rg.POST("/artifacts/current/restore", h.restore)
	rg.POST("/library", h.saveToLibrary)
	rg.GET("/library", h.listLibrary)
	rg.GET("/library/:id/download", h.downloadLibraryEntry)
	rg.DELETE("/library/:id", h.deleteLibraryEntry)
	rg.GET("/templates", h.listTemplates)
}

type renderRequest struct {
	Content    model.ResumeContent `json:"content"`
	TemplateID string              `json:"templateId"`
	JobTarget  *model.JobTarget    `json:"jobTarget"`
}

type artifactResponse struct {
	ID           string           `json:"id"`
	Fingerprint  string           `json:"fingerprint"`
	SizeBytes    int64            `json:"sizeBytes"`
	PageCount    int              `json:"pageCount"`
	HasTextLayer bool             `json:"hasTextLayer"`
	TemplateID   string           `json:"templateId"`
	JobTarget    *model.JobTarget `json:"jobTarget,omitempty"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}

func toArtifactResponse(a artifacts.CompiledArtifact) artifactResponse {
	return artifactResponse{
		ID:           a.ID,
		Fingerprint:  a.Fingerprint,
		SizeBytes:    a.SizeBytes,
		PageCount:    a.PageCount,
		HasTextLayer: a.HasTextLayer,
		TemplateID:   a.TemplateID,
		JobTarget:    a.JobTarget,
		GeneratedAt:  a.GeneratedAt,
	}
}

func (h *Handler) render(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if err := req.Content.Validate(); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	if !req.Content.RenderReady() {
		respond.Error(c, http.StatusUnprocessableEntity, "not_render_ready", "content needs a name and at least one contact channel before rendering", nil)
		return
	}

	result, err := h.Engine.Render(c.Request.Context(), userID, req.Content, req.TemplateID, req.JobTarget)
	if err != nil {
		respondRenderError(c, err)
		return
	}

	respond.OK(c, gin.H{
		"state":    StateReady,
		"cacheHit": result.CacheHit,
		"artifact": toArtifactResponse(result.Artifact),
	})
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	respond.OK(c, h.Engine.Status(userID))
}

func (h *Handler) currentMeta(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	artifact, err := h.Store.CurrentMeta(userID)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "no current artifact", nil)
		return
	}
	respond.OK(c, toArtifactResponse(artifact))
}

func (h *Handler) currentDownload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	artifact, binary, err := h.Store.CurrentBytes(userID)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "no current artifact", nil)
		return
	}
	// disposition=inline lets the client open the document for printing
	// instead of saving it.
	disposition := "attachment"
	if c.Query("disposition") == "inline" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", disposition+`; filename="resume_`+artifact.TemplateID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", binary)
}

func (h *Handler) persist(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	err := h.Store.Persist(c.Request.Context(), userID)
	switch {
	case err == nil:
		respond.OK(c, gin.H{"persisted": true})
	case errors.Is(err, artifacts.ErrNoArtifact):
		respond.Error(c, http.StatusNotFound, "not_found", "no current artifact", nil)
	case errors.Is(err, artifacts.ErrStorageQuota):
		// Degrade: the in-memory artifact stays valid, only durability is lost.
		telemetry.Error("persist skipped on storage quota", map[string]any{"error": err.Error()})
		respond.OK(c, gin.H{
			"persisted": false,
			"warning":   "durable storage is full; the current artifact is kept in memory only",
		})
	default:
		respond.Error(c, http.StatusInternalServerError, "persist_failed", "failed to persist artifact", nil)
	}
}

func (h *Handler) restore(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	artifact, err := h.Store.Restore(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, artifacts.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "no restorable artifact", nil)
		case errors.Is(err, artifacts.ErrArtifactDecode):
			// A bad record is a cache miss, never a decode detail for the user.
			telemetry.Error("durable artifact record unreadable", map[string]any{"error": err.Error()})
			respond.Error(c, http.StatusNotFound, "not_found", "no restorable artifact", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "restore_failed", "failed to restore artifact", nil)
		}
		return
	}
	h.Engine.NoteRestored(userID, artifact.Fingerprint)
	respond.OK(c, toArtifactResponse(artifact))
}

type saveToLibraryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) saveToLibrary(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req saveToLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "name is required", nil)
		return
	}

	entry, err := h.Store.SaveToLibrary(c.Request.Context(), userID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, artifacts.ErrNoArtifact):
			respond.Error(c, http.StatusNotFound, "not_found", "no current artifact to save", nil)
		case errors.Is(err, artifacts.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, artifacts.ErrStorageQuota):
			respond.RetryableError(c, http.StatusInsufficientStorage, "storage_quota", "library storage is full", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "library_save_failed", "failed to save to library", nil)
		}
		return
	}
	respond.JSON(c, http.StatusCreated, toLibraryResponse(entry))
}

type libraryEntryResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Fingerprint string           `json:"fingerprint"`
	TemplateID  string           `json:"templateId"`
	JobTarget   *model.JobTarget `json:"jobTarget,omitempty"`
	SizeBytes   int64            `json:"sizeBytes"`
	PageCount   int              `json:"pageCount"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func toLibraryResponse(entry artifacts.LibraryEntry) libraryEntryResponse {
	return libraryEntryResponse{
		ID:          entry.ID,
		Name:        entry.Name,
		Fingerprint: entry.Fingerprint,
		TemplateID:  entry.TemplateID,
		JobTarget:   entry.JobTarget,
		SizeBytes:   entry.SizeBytes,
		PageCount:   entry.PageCount,
		CreatedAt:   entry.CreatedAt,
	}
}

func (h *Handler) listLibrary(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.Store.ListLibrary(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "library_list_failed", "failed to list library", nil)
		return
	}
	out := make([]libraryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toLibraryResponse(entry))
	}
	respond.OK(c, gin.H{"entries": out})
}

func (h *Handler) downloadLibraryEntry(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	entry, reader, err := h.Store.OpenLibraryEntry(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "library entry not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "library_download_failed", "failed to open library entry", nil)
		return
	}
	defer reader.Close()
	c.Header("Content-Disposition", `attachment; filename="`+entry.Name+`.pdf"`)
	c.DataFromReader(http.StatusOK, entry.SizeBytes, "application/pdf", reader, nil)
}

func (h *Handler) deleteLibraryEntry(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Store.DeleteFromLibrary(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "library entry not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "library_delete_failed", "failed to delete library entry", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

type templateResponse struct {
	ID                   string   `json:"id"`
	DisplayName          string   `json:"displayName"`
	Category             string   `json:"category"`
	RequiredPlaceholders []string `json:"requiredPlaceholders"`
	Default              bool     `json:"default"`
}

func (h *Handler) listTemplates(c *gin.Context) {
	list := h.Engine.Registry.List()
	out := make([]templateResponse, 0, len(list))
	for _, tpl := range list {
		out = append(out, templateResponse{
			ID:                   tpl.ID,
			DisplayName:          tpl.DisplayName,
			Category:             tpl.Category,
			RequiredPlaceholders: tpl.RequiredPlaceholders,
			Default:              tpl.ID == templates.DefaultTemplateID,
		})
	}
	respond.OK(c, gin.H{"templates": out})
}

// respondRenderError maps render failures onto the HTTP surface. Template
// and syntax problems are the user's to fix (422); timeout and toolchain
// outages are transient (504/503); a concurrent render is a conflict.
func respondRenderError(c *gin.Context, err error) {
	code, reason := failureFor(err)
	switch code {
	case "template_error", "compiler_syntax":
		respond.RetryableError(c, http.StatusUnprocessableEntity, code, reason, nil)
	case "compile_timeout":
		respond.RetryableError(c, http.StatusGatewayTimeout, code, reason, nil)
	case "toolchain_unavailable":
		respond.RetryableError(c, http.StatusServiceUnavailable, code, reason, nil)
	default:
		switch {
		case errors.Is(err, ErrRenderInFlight):
			respond.Error(c, http.StatusConflict, "render_in_flight", "a render is already running for this session", nil)
		case errors.Is(err, ErrSessionClosed):
			respond.Error(c, http.StatusConflict, "session_closed", "the session was torn down during the render", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "render_error", "render failed", nil)
		}
	}
}
