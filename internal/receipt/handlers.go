package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ledger/internal/extraction"
)

// maxUploadSize covers high-resolution phone photos
const maxUploadSize = int64(50 << 20)

const uploadTooLarge = "File is too large. Maximum size is 50MB. Please compress or resize your image."

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes {"error": message}
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeScanError writes the {"success": false, "error": ...} failure body
func writeScanError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// writeBindError maps request binding failures to 400
func writeBindError(w http.ResponseWriter, err error) {
	var be *bindError
	if errors.As(err, &be) {
		writeError(w, http.StatusBadRequest, be.Error())
		return
	}
	slog.Error("Error binding request", "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// DetectContentType falls back to the file extension when the part has no
// specific type
func DetectContentType(header string, filename string) string {
	header = strings.ToLower(strings.TrimSpace(header))
	if header != "" && header != "application/octet-stream" {
		return header
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleScanReceipt handles receipt upload and extraction
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = uploadTooLarge
		}
		writeScanError(w, http.StatusBadRequest, errorMsg)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		writeScanError(w, http.StatusBadRequest, errorMsg)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeScanError(w, http.StatusBadRequest, uploadTooLarge)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeScanError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := DetectContentType(header.Header.Get("Content-Type"), header.Filename)

	scan, err := s.service.ScanReceipt(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		if extraction.IsSourceFailure(err) {
			writeScanError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeScanError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, scan)
}

type parseTextRequest struct {
	Text string `json:"text" validate:"required,max=100000"`
}

// handleParseText runs extraction on already recognized text
func (s *Server) handleParseText(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[parseTextRequest](r)
	if err != nil {
		writeBindError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.service.ParseText(req.Text))
}

// handleListScans returns a list of all scans
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := s.service.ListScans()
	if err != nil {
		slog.Error("Error listing scans", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, scans)
}

// handleGetScan returns a single scan
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scan, err := s.service.GetScan(r.PathValue("id"))
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "Scan not found")
			return
		}
		slog.Error("Error getting scan", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, scan)
}

// handleGetScanFile returns the uploaded image for a scan
func (s *Server) handleGetScanFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetScanFile(r.PathValue("id"))
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		slog.Error("Error getting scan file", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteScan deletes a scan and its file
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteScan(r.PathValue("id")); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "Scan not found")
			return
		}
		slog.Error("Error deleting scan", "error", err)
		writeError(w, http.StatusInternalServerError, "Error deleting scan")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type commitExpensesRequest struct {
	ScanID string                    `json:"scan_id" validate:"omitempty,max=64"`
	Items  []extraction.ExpenseDraft `json:"items" validate:"required,min=1,max=200"`
}

// handleCommitExpenses books reviewed drafts into the ledger
func (s *Server) handleCommitExpenses(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[commitExpensesRequest](r)
	if err != nil {
		writeBindError(w, err)
		return
	}

	expenses, err := s.service.CommitExpenses(req.ScanID, req.Items)
	if err != nil {
		switch {
		case isNotFound(err):
			writeError(w, http.StatusNotFound, "Scan not found")
		case errors.Is(err, ErrNoItems), errors.Is(err, ErrMissingAmount):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("Error committing expenses", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, expenses)
}

// handleListExpenses returns the ledger
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListExpenses()
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, expenses)
}

// handleDeleteExpense removes an expense
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteExpense(r.PathValue("id")); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "Expense not found")
			return
		}
		slog.Error("Error deleting expense", "error", err)
		writeError(w, http.StatusInternalServerError, "Error deleting expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type suggestCategoryRequest struct {
	Description string           `json:"description" validate:"required,max=500"`
	Amount      *decimal.Decimal `json:"amount"`
}

// handleSuggestCategory suggests a category for a manual entry
func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[suggestCategoryRequest](r)
	if err != nil {
		writeBindError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.service.SuggestCategory(r.Context(), req.Description, req.Amount))
}

// handleListCategories returns the manual-entry categories
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"categories": s.service.Categories(),
	})
}

// handleCategoryCacheStats returns the suggestion cache statistics
func (s *Server) handleCategoryCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   s.service.CategoryCacheStats(),
	})
}

// handleClearCategoryCache drops all cached suggestions
func (s *Server) handleClearCategoryCache(w http.ResponseWriter, r *http.Request) {
	s.service.ClearCategoryCache()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Category cache cleared",
	})
}
