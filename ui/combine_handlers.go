package ui

import (
	"net/http"

	"xceldash/app"
	"xceldash/domain/combine"
	"xceldash/domain/core"
	"xceldash/internal/errors"

	"github.com/gin-gonic/gin"
)

type CombineHandler struct {
	planner *app.CombinationPlanner
}

func NewCombineHandler(planner *app.CombinationPlanner) *CombineHandler {
	return &CombineHandler{planner: planner}
}

type previewRequest struct {
	SelectedFiles []string `json:"selected_files" binding:"required"`
}

type confirmRequest struct {
	SelectedFiles       []string                `json:"selected_files" binding:"required"`
	FinalFilename       string                  `json:"final_filename"`
	ApprovedDerivations []combine.DerivedColumn `json:"approved_derivations"`
}

func fileIDs(raw []string) []core.FileID {
	ids := make([]core.FileID, 0, len(raw))
	for _, s := range raw {
		ids = append(ids, core.FileID(s))
	}
	return ids
}

// HandlePreview builds a read-only combination preview over the selected files
func (h *CombineHandler) HandlePreview() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req previewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.ValidationError("selected_files is required"))
			return
		}

		preview, err := h.planner.Preview(c.Request.Context(), fileIDs(req.SelectedFiles))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "preview": preview})
	}
}

// HandleRegenerate re-runs only the AI insight step for an existing preview
func (h *CombineHandler) HandleRegenerate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req previewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.ValidationError("selected_files is required"))
			return
		}

		preview, err := h.planner.Regenerate(c.Request.Context(), fileIDs(req.SelectedFiles))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "preview": preview})
	}
}

// HandleConfirm materializes the combined file and its widget placeholder
func (h *CombineHandler) HandleConfirm() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req confirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.ValidationError("selected_files is required"))
			return
		}

		combined, err := h.planner.Confirm(c.Request.Context(), combine.ConfirmRequest{
			FileIDs:             fileIDs(req.SelectedFiles),
			FinalFilename:       req.FinalFilename,
			ApprovedDerivations: req.ApprovedDerivations,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "file": combined})
	}
}
