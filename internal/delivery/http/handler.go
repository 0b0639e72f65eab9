package http

import (
	"encoding/base64"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bidlens/backend/internal/domain"
	"github.com/bidlens/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	compareService *usecase.CompareService
	reportBuilder  domain.ReportBuilder
}

// NewHandler creates a new HTTP handler
func NewHandler(compareService *usecase.CompareService, reportBuilder domain.ReportBuilder) *Handler {
	return &Handler{
		compareService: compareService,
		reportBuilder:  reportBuilder,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "bidlens-backend",
		"version": "1.0.0",
	})
}

// compareResponse is the JSON body returned by CompareBids.
type compareResponse struct {
	Result        *domain.RunResult `json:"result"`
	Excel         string            `json:"excel,omitempty"`
	MatrixExcel   string            `json:"matrix_excel,omitempty"`
	ChaptersExcel string            `json:"chapters_excel,omitempty"`
}

// CompareBids accepts a multipart upload of bid files, runs the comparison
// and returns the full result set. Workbook exports are attached as base64
// unless the client opts out with ?workbooks=none.
func (h *Handler) CompareBids(c *gin.Context) {
	result, ok := h.runComparison(c)
	if !ok {
		return
	}

	resp := compareResponse{Result: result}

	if c.Query("workbooks") != "none" {
		resp.Excel = h.encodeWorkbook("full", result, h.reportBuilder.BuildWorkbook)
		resp.MatrixExcel = h.encodeWorkbook("matrix", result, h.reportBuilder.BuildMatrixWorkbook)
		resp.ChaptersExcel = h.encodeWorkbook("chapters", result, h.reportBuilder.BuildChapterWorkbook)
	}

	c.JSON(http.StatusOK, resp)
}

// ExportFull runs the comparison and streams the full workbook (per-provider
// sheets plus the comparison matrix and chapter summary) as an attachment.
func (h *Handler) ExportFull(c *gin.Context) {
	h.exportWorkbook(c, "bid-comparison.xlsx", h.reportBuilder.BuildWorkbook)
}

// ExportMatrix runs the comparison and streams only the matrix workbook.
func (h *Handler) ExportMatrix(c *gin.Context) {
	h.exportWorkbook(c, "comparison-matrix.xlsx", h.reportBuilder.BuildMatrixWorkbook)
}

// ExportChapters runs the comparison and streams only the chapter workbook.
func (h *Handler) ExportChapters(c *gin.Context) {
	h.exportWorkbook(c, "chapter-summary.xlsx", h.reportBuilder.BuildChapterWorkbook)
}

func (h *Handler) exportWorkbook(c *gin.Context, filename string, build func(*domain.RunResult) ([]byte, error)) {
	result, ok := h.runComparison(c)
	if !ok {
		return
	}

	data, err := build(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "workbook export failed: " + err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// runComparison reads the multipart upload and runs the comparison pipeline.
// On failure it writes the error response itself and returns ok=false.
func (h *Handler) runComparison(c *gin.Context) (*domain.RunResult, bool) {
	files, ok := h.readUploads(c)
	if !ok {
		return nil, false
	}

	result, err := h.compareService.Compare(c.Request.Context(), files)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrNoBids):
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, false
	}
	return result, true
}

func (h *Handler) readUploads(c *gin.Context) ([]domain.BidFile, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid multipart form: " + err.Error(),
		})
		return nil, false
	}

	uploads := form.File["files"]
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "no bid files uploaded (use form field 'files')",
		})
		return nil, false
	}

	files := make([]domain.BidFile, 0, len(uploads))
	for _, upload := range uploads {
		f, err := upload.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "cannot open upload " + upload.Filename + ": " + err.Error(),
			})
			return nil, false
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "cannot read upload " + upload.Filename + ": " + err.Error(),
			})
			return nil, false
		}
		files = append(files, domain.BidFile{Name: upload.Filename, Data: data})
	}
	return files, true
}

// encodeWorkbook builds one export and base64-encodes it. Export failures
// are logged and reported as warnings rather than failing the whole request,
// since the comparison itself already succeeded.
func (h *Handler) encodeWorkbook(kind string, result *domain.RunResult, build func(*domain.RunResult) ([]byte, error)) string {
	data, err := build(result)
	if err != nil {
		log.Printf("[HANDLER] %s workbook export failed: %v", kind, err)
		result.Warnings = append(result.Warnings, kind+" workbook export failed: "+err.Error())
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}
