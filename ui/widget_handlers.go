package ui

import (
	"net/http"

	"xceldash/app"
	"xceldash/domain/core"
	"xceldash/domain/widget"
	"xceldash/internal/errors"

	"github.com/gin-gonic/gin"
)

type WidgetHandler struct {
	catalog  *app.CatalogService
	resolver *app.FunctionResolver
}

func NewWidgetHandler(catalog *app.CatalogService, resolver *app.FunctionResolver) *WidgetHandler {
	return &WidgetHandler{catalog: catalog, resolver: resolver}
}

type createWidgetRequest struct {
	FileID string        `json:"file_id" binding:"required"`
	Name   string        `json:"name" binding:"required"`
	Type   widget.Type   `json:"type" binding:"required"`
	Config widget.Config `json:"config"`
}

type createAIWidgetRequest struct {
	FileID      string      `json:"file_id" binding:"required"`
	Type        widget.Type `json:"type" binding:"required"`
	Description string      `json:"description"`
}

type updateWidgetRequest struct {
	Name      *string `json:"name"`
	Displayed *bool   `json:"displayed"`
}

type saveSelectionRequest struct {
	FileID    string   `json:"file_id" binding:"required"`
	WidgetIDs []string `json:"widget_ids"`
}

// HandleFunctionOptions returns the deterministic option list for a file and
// widget type.
func (h *WidgetHandler) HandleFunctionOptions() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileID, err := core.ParseFileID(c.Param("id"))
		if err != nil {
			respondError(c, errors.ValidationError(err.Error()))
			return
		}

		widgetType := widget.Type(c.DefaultQuery("widget_type", string(widget.TypeKPI)))

		options, err := h.resolver.Options(c.Request.Context(), fileID, widgetType)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "options": options, "count": len(options)})
	}
}

func (h *WidgetHandler) HandleListByFile() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileID, err := core.ParseFileID(c.Param("id"))
		if err != nil {
			respondError(c, errors.ValidationError(err.Error()))
			return
		}

		widgets, err := h.catalog.ListByFile(c.Request.Context(), fileID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "widgets": widgets, "count": len(widgets)})
	}
}

func (h *WidgetHandler) HandleCreateManual() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createWidgetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.ValidationError("file_id, name and type are required"))
			return
		}

		w, err := h.catalog.CreateManual(c.Request.Context(), core.FileID(req.FileID), req.Name, req.Type, req.Config)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "widget": w})
	}
}

func (h *WidgetHandler) HandleCreateFromAI() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createAIWidgetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.ValidationError("file_id and type are required"))
			return
		}

		w, err := h.catalog.CreateFromAI(c.Request.Context(), core.FileID(req.FileID), req.Type, req.Description)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "widget": w})
	}
}

// HandleUpdate renames a widget and/or toggles its displayed flag
func (h *WidgetHandler) HandleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := core.ParseWidgetID(c.Param("id"))
		if err != nil {
			respondError(c, errors.ValidationError(err.Error()))
			return
		}

		var req updateWidgetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.ValidationError("invalid request body"))
			return
		}
		if req.Name == nil && req.Displayed == nil {
			respondError(c, errors.ValidationError("nothing to update"))
			return
		}

		var w *widget.Widget
		if req.Name != nil {
			w, err = h.catalog.Rename(c.Request.Context(), id, *req.Name)
			if err != nil {
				respondError(c, err)
				return
			}
		}
		if req.Displayed != nil {
			w, err = h.catalog.SetDisplayed(c.Request.Context(), id, *req.Displayed)
			if err != nil {
				respondError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "widget": w})
	}
}

// HandleDelete removes a widget; deleting an unknown id succeeds so duplicate
// clicks stay harmless.
func (h *WidgetHandler) HandleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := core.ParseWidgetID(c.Param("id"))
		if err != nil {
			respondError(c, errors.ValidationError(err.Error()))
			return
		}

		if err := h.catalog.Remove(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "widget removed"})
	}
}

// HandleSaveSelection replaces a file's displayed widget set atomically
func (h *WidgetHandler) HandleSaveSelection() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req saveSelectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.ValidationError("file_id is required"))
			return
		}

		widgetIDs := make([]core.WidgetID, 0, len(req.WidgetIDs))
		for _, id := range req.WidgetIDs {
			widgetIDs = append(widgetIDs, core.WidgetID(id))
		}

		if err := h.catalog.SaveSelection(c.Request.Context(), core.FileID(req.FileID), widgetIDs); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "selection saved", "displayed": len(widgetIDs)})
	}
}
