package ui

import (
	"net/http"
	"strconv"

	"xceldash/ai"
	"xceldash/app"
	"xceldash/domain/core"
	"xceldash/domain/file"
	"xceldash/internal/errors"
	"xceldash/internal/ingest"

	"github.com/gin-gonic/gin"
)

// defaultUserID is used until authentication lands; every record still carries
// an owner so adding real users later is a data migration, not a schema change.
const defaultUserID = core.UserID("00000000-0000-0000-0000-000000000001")

type FileHandler struct {
	registry  *app.RegistryService
	processor *ingest.Processor
	analyst   *ai.FileAnalyst
}

func NewFileHandler(registry *app.RegistryService, processor *ingest.Processor, analyst *ai.FileAnalyst) *FileHandler {
	return &FileHandler{
		registry:  registry,
		processor: processor,
		analyst:   analyst,
	}
}

// HandleUpload ingests a spreadsheet. The response always carries the file's
// terminal status; a parse failure is reported as a failed file, not a failed
// request, so the client can show the record with its error message.
func (h *FileHandler) HandleUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			respondError(c, errors.ValidationError("multipart field \"file\" is required"))
			return
		}

		f, err := header.Open()
		if err != nil {
			respondError(c, errors.ValidationError("failed to read uploaded file"))
			return
		}
		defer f.Close()

		uploaded, err := h.processor.Process(c.Request.Context(), file.Upload{
			UserID:   userID(c),
			Filename: header.Filename,
			File:     f,
			Size:     header.Size,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": uploaded.IsCompleted(),
			"file":    uploaded,
		})
	}
}

// HandleList returns files newest first; ?status=completed narrows to the
// files eligible for widgets and combination.
func (h *FileHandler) HandleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("status") == string(file.StatusCompleted) {
			files, err := h.registry.ListCompleted(c.Request.Context())
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "files": files, "count": len(files)})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		files, err := h.registry.List(c.Request.Context(), limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "files": files, "count": len(files)})
	}
}

func (h *FileHandler) HandleGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := core.ParseFileID(c.Param("id"))
		if err != nil {
			respondError(c, errors.ValidationError(err.Error()))
			return
		}

		f, err := h.registry.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "file": f})
	}
}

// HandleAnalyze runs AI context analysis on a completed file and stores the
// insights on its metadata.
func (h *FileHandler) HandleAnalyze() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := core.ParseFileID(c.Param("id"))
		if err != nil {
			respondError(c, errors.ValidationError(err.Error()))
			return
		}

		f, err := h.registry.GetCompleted(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		insights, err := h.analyst.Analyze(c.Request.Context(), f.Schema.Headers, f.Metadata.SampleRows)
		if err != nil {
			respondError(c, errors.AIUnavailable(err))
			return
		}

		if err := h.registry.AttachInsights(c.Request.Context(), id, insights); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "insights": insights})
	}
}

// userID resolves the acting user from the X-User-ID header, defaulting to the
// single-tenant placeholder.
func userID(c *gin.Context) core.UserID {
	if v := c.GetHeader("X-User-ID"); v != "" {
		return core.UserID(v)
	}
	return defaultUserID
}
