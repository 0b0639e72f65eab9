package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/bidlens/backend/config"
	"github.com/bidlens/backend/internal/infrastructure/bidfile"
	"github.com/bidlens/backend/internal/infrastructure/cache"
	"github.com/bidlens/backend/internal/infrastructure/xlsxreport"
	"github.com/bidlens/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	// Run tests
	exitCode := m.Run()

	// Exit with the test result code
	os.Exit(exitCode)
}

// setupTestRouter creates a test router with the real comparison pipeline.
func setupTestRouter() *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:3000", "https://*.bidlens.no"},
		},
		Compare: config.CompareConfig{
			MaxParseWorkers: 2,
			MaxUploadMB:     8,
		},
		Export: config.ExportConfig{
			Currency: "kr",
		},
		RateLimit: config.RateLimitConfig{
			PerIP: 1000,
		},
	}

	service := usecase.NewCompareService(bidfile.NewReader(), usecase.CompareServiceConfig{
		MaxParseWorkers: cfg.Compare.MaxParseWorkers,
	})
	builder := xlsxreport.NewBuilder(cfg.Export.Currency)
	handler := NewHandler(service, builder)

	return SetupRouter(cfg, handler, cache.NewMemoryCache())
}

// buildMultipart assembles a multipart body with one part per bid file.
func buildMultipart(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile(%s) error = %v", name, err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("writing part %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

const csvBidA = `Postnr;Beskrivelse;Enhet;Mengde;Enhetspris;Sum
01.1;Graving av byggegrop;m3;100;150,00;15000,00
01.2;Sprengning;m3;50;200,00;10000,00
02.1;Betongarbeider;m2;80;500,00;40000,00
`

const csvBidB = `Postnr;Beskrivelse;Enhet;Mengde;Enhetspris;Sum
01.1;Graving av byggegrop;m3;100;160,00;16000,00
01.2;Sprengning;m3;50;190,00;9500,00
02.1;Betongarbeider;m2;80;480,00;38400,00
`

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		if err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "bidlens-backend" {
			t.Errorf("service = %v, want bidlens-backend", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		methods := []string{"POST", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestCompareBidsEndpoint tests the comparison endpoint end to end.
func TestCompareBidsEndpoint(t *testing.T) {
	t.Run("compares two delimited bids", func(t *testing.T) {
		router := setupTestRouter()

		body, contentType := buildMultipart(t, map[string]string{
			"entreprenor-a.csv": csvBidA,
			"entreprenor-b.csv": csvBidB,
		})

		req, _ := http.NewRequest("POST", "/api/v1/bids/compare?workbooks=none", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
		}

		var response struct {
			Result struct {
				Providers []string `json:"providers"`
				Summary   struct {
					Winner struct {
						Name  string  `json:"name"`
						Total float64 `json:"total"`
					} `json:"winner"`
					ItemCount int `json:"itemCount"`
				} `json:"summary"`
				ZScoresEnabled bool `json:"zScoresEnabled"`
			} `json:"result"`
			Excel string `json:"excel"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if len(response.Result.Providers) != 2 {
			t.Errorf("providers = %v, want 2 entries", response.Result.Providers)
		}
		if response.Result.Summary.ItemCount != 3 {
			t.Errorf("itemCount = %d, want 3", response.Result.Summary.ItemCount)
		}
		// B totals 63900 vs A 65000, so B wins.
		if response.Result.Summary.Winner.Name != "entreprenor-b" {
			t.Errorf("winner = %s, want entreprenor-b", response.Result.Summary.Winner.Name)
		}
		if response.Result.Summary.Winner.Total != 63900 {
			t.Errorf("winner total = %v, want 63900", response.Result.Summary.Winner.Total)
		}
		// Two providers only, z-scores stay off.
		if response.Result.ZScoresEnabled {
			t.Error("zScoresEnabled = true, want false for two providers")
		}
		if response.Excel != "" {
			t.Error("excel should be empty when workbooks=none")
		}
	})

	t.Run("attaches base64 workbooks by default", func(t *testing.T) {
		router := setupTestRouter()

		body, contentType := buildMultipart(t, map[string]string{
			"a.csv": csvBidA,
			"b.csv": csvBidB,
		})

		req, _ := http.NewRequest("POST", "/api/v1/bids/compare", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
		}

		var response compareResponse
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response.Excel == "" {
			t.Error("excel workbook missing from response")
		}
		if response.MatrixExcel == "" {
			t.Error("matrix workbook missing from response")
		}
		if response.ChaptersExcel == "" {
			t.Error("chapters workbook missing from response")
		}
	})

	t.Run("returns 400 when no files uploaded", func(t *testing.T) {
		router := setupTestRouter()

		body, contentType := buildMultipart(t, map[string]string{})

		req, _ := http.NewRequest("POST", "/api/v1/bids/compare", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 422 when every file is unparsable", func(t *testing.T) {
		router := setupTestRouter()

		body, contentType := buildMultipart(t, map[string]string{
			"garbage.csv": "this;is;not;a;bid\n1;2;3;4;5\n",
		})

		req, _ := http.NewRequest("POST", "/api/v1/bids/compare", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Status = %d, want %d (body: %s)", w.Code, http.StatusUnprocessableEntity, w.Body.String())
		}
	})

	t.Run("returns 400 for non-multipart body", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("POST", "/api/v1/bids/compare", strings.NewReader(`{"not":"multipart"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestExportEndpoints tests the direct workbook download routes.
func TestExportEndpoints(t *testing.T) {
	paths := []string{
		"/api/v1/bids/export",
		"/api/v1/bids/export/matrix",
		"/api/v1/bids/export/chapters",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			router := setupTestRouter()

			body, contentType := buildMultipart(t, map[string]string{
				"a.csv": csvBidA,
				"b.csv": csvBidB,
			})

			req, _ := http.NewRequest("POST", path, body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
			}

			if got := w.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
				t.Errorf("Content-Type = %q, want xlsx mime type", got)
			}
			if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
				t.Errorf("Content-Disposition = %q, want attachment", got)
			}
			// xlsx files are zip archives.
			if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK\x03\x04")) {
				t.Error("response body is not a zip archive")
			}
		})
	}
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for allowed origin", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "http://localhost:3000")
		}

		gotCreds := w.Header().Get("Access-Control-Allow-Credentials")
		if gotCreds != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", gotCreds, "true")
		}
	})

	t.Run("compare endpoint has CORS for wildcard origin", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("POST", "/api/v1/bids/compare", nil)
		req.Header.Set("Origin", "https://app.bidlens.no")
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "https://app.bidlens.no" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "https://app.bidlens.no")
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter()

		// Add a test route that panics
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		// This should not crash the test - recovery middleware should handle it
		router.ServeHTTP(w, req)

		// Gin's default recovery returns 500
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestAPIVersioning tests that API v1 routes are correctly versioned
func TestAPIVersioning(t *testing.T) {
	t.Run("v1 routes are accessible", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("POST", "/api/v1/bids/compare", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// Empty body fails multipart parsing with 400, not 404.
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("non-versioned routes return 404", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("POST", "/api/bids/compare", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestJSONResponses tests that error and health responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"POST", "/api/v1/bids/compare"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter()

			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			if err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
