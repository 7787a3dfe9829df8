package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ledger/internal/categorize"
	"github.com/zombor/receipt-ledger/internal/extraction"
)

func multipartUpload(field, filename string, data []byte) (*bytes.Buffer, string) {
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(writer.Close()).To(Succeed())
	return &b, writer.FormDataContentType()
}

func readBody(resp *http.Response) []byte {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return body
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		source      *mockSource
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server := NewServerWithMux(newTestService(db, source, storage), auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP, server.ServeHTTP)
	}

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if auth.Username != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	postJSON := func(path string, v any) *http.Response {
		data, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		return do(http.MethodPost, path, bytes.NewReader(data), "application/json")
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		source = newMockSource()
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("POST /api/receipts/scan", func() {
		When("the receipt is readable", func() {
			It("should return the scan", func() {
				body, contentType := multipartUpload("file", "walmart.jpg", []byte("fake image data"))
				resp := do(http.MethodPost, "/api/receipts/scan", body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var scan Scan
				Expect(json.Unmarshal(readBody(resp), &scan)).To(Succeed())
				Expect(scan.ID).To(Equal("test-id-123"))
				Expect(scan.ContentType).To(Equal("image/jpeg"))
				Expect(scan.Result.Items).To(HaveLen(1))
				Expect(scan.Result.Items[0].Amount.Decimal.StringFixed(2)).To(Equal("142.37"))
			})

			It("should encode the amount as a JSON number", func() {
				body, contentType := multipartUpload("file", "walmart.png", []byte("fake image data"))
				resp := do(http.MethodPost, "/api/receipts/scan", body, contentType)

				var raw map[string]any
				Expect(json.Unmarshal(readBody(resp), &raw)).To(Succeed())
				items := raw["result"].(map[string]any)["items"].([]any)
				Expect(items[0].(map[string]any)["amount"]).To(BeNumerically("==", 142.37))
			})
		})

		When("the text source fails", func() {
			BeforeEach(func() {
				source.err = errors.New("no readable text in image")
				setupServer()
			})

			It("should return 422 with a failure body", func() {
				body, contentType := multipartUpload("file", "blank.jpg", []byte("fake image data"))
				resp := do(http.MethodPost, "/api/receipts/scan", body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

				var response map[string]any
				Expect(json.Unmarshal(readBody(resp), &response)).To(Succeed())
				Expect(response["success"]).To(BeFalse())
				Expect(response["error"]).To(ContainSubstring("no readable text"))
			})
		})

		When("storage fails", func() {
			BeforeEach(func() {
				storage.saveErr = errors.New("disk full")
				setupServer()
			})

			It("should return 500", func() {
				body, contentType := multipartUpload("file", "walmart.jpg", []byte("fake image data"))
				resp := do(http.MethodPost, "/api/receipts/scan", body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				body, contentType := multipartUpload("", "", nil)
				resp := do(http.MethodPost, "/api/receipts/scan", body, contentType)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(string(readBody(resp))).To(ContainSubstring("No file was selected"))
			})
		})

		When("the form is invalid", func() {
			It("should return status Bad Request", func() {
				resp := do(http.MethodPost, "/api/receipts/scan", strings.NewReader("invalid"), "multipart/form-data")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(string(readBody(resp))).To(ContainSubstring("Error parsing form"))
			})
		})
	})

	Describe("POST /api/receipts/parse", func() {
		It("should extract drafts from text", func() {
			resp := postJSON("/api/receipts/parse", map[string]string{
				"text": "Joe's Diner\nBusiness Dinner    $75.00\nTaxi Fare $25.00\n01/15/2024",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result extraction.ReceiptResult
			Expect(json.Unmarshal(readBody(resp), &result)).To(Succeed())
			Expect(result.Multiple).To(BeTrue())
			Expect(result.Items).To(HaveLen(2))
			Expect(result.Items[1].Description).To(Equal("Taxi Fare"))
		})

		It("should reject a missing text", func() {
			resp := postJSON("/api/receipts/parse", map[string]string{})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(string(readBody(resp))).To(ContainSubstring("text is a required field"))
		})

		It("should reject unknown fields", func() {
			resp := postJSON("/api/receipts/parse", map[string]string{"text": "x", "extra": "y"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})
	})

	Describe("scan records", func() {
		BeforeEach(func() {
			db.scans["s1"] = &Scan{ID: "s1", Filename: "s1_receipt.png", ContentType: "image/png"}
			storage.files["s1_receipt.png"] = []byte("png bytes")
		})

		It("should list scans", func() {
			resp := do(http.MethodGet, "/api/scans", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var scans []*Scan
			Expect(json.Unmarshal(readBody(resp), &scans)).To(Succeed())
			Expect(scans).To(HaveLen(1))
		})

		It("should get a scan", func() {
			resp := do(http.MethodGet, "/api/scans/s1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("should return 404 for unknown scans", func() {
			resp := do(http.MethodGet, "/api/scans/missing", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})

		It("should serve the scan file", func() {
			resp := do(http.MethodGet, "/api/scans/s1/file", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			Expect(readBody(resp)).To(Equal([]byte("png bytes")))
		})

		It("should delete a scan", func() {
			resp := do(http.MethodDelete, "/api/scans/s1", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			resp.Body.Close()
			Expect(db.scans).To(BeEmpty())
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("boom")
				setupServer()
			})

			It("should return status Internal Server Error", func() {
				resp := do(http.MethodGet, "/api/scans", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(string(readBody(resp))).To(ContainSubstring("Internal server error"))
			})
		})
	})

	Describe("expenses", func() {
		BeforeEach(func() {
			db.scans["s1"] = &Scan{ID: "s1"}
		})

		It("should commit drafts", func() {
			resp := postJSON("/api/expenses", map[string]any{
				"scan_id": "s1",
				"items": []map[string]any{
					{"amount": 75, "description": "Business Dinner", "date": "2024-01-15", "merchant": "Joe's Diner", "category": "Food & Dining", "confidence": 100},
				},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var expenses []*Expense
			Expect(json.Unmarshal(readBody(resp), &expenses)).To(Succeed())
			Expect(expenses).To(HaveLen(1))
			Expect(expenses[0].Amount.Equal(decimal.NewFromInt(75))).To(BeTrue())
			Expect(expenses[0].Category).To(Equal(extraction.CategoryFoodDining))
		})

		It("should reject drafts without an amount", func() {
			resp := postJSON("/api/expenses", map[string]any{
				"items": []map[string]any{{"amount": nil, "description": "Mystery"}},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(string(readBody(resp))).To(ContainSubstring("amount is required"))
		})

		It("should reject an empty item list", func() {
			resp := postJSON("/api/expenses", map[string]any{"items": []any{}})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})

		It("should return 404 for an unknown scan", func() {
			resp := postJSON("/api/expenses", map[string]any{
				"scan_id": "missing",
				"items":   []map[string]any{{"amount": 1.5}},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})

		When("expenses exist", func() {
			BeforeEach(func() {
				db.expenses["e1"] = &Expense{ID: "e1", Amount: decimal.NewFromInt(5), Date: "2024-01-01"}
			})

			It("should list them", func() {
				resp := do(http.MethodGet, "/api/expenses", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var expenses []*Expense
				Expect(json.Unmarshal(readBody(resp), &expenses)).To(Succeed())
				Expect(expenses).To(HaveLen(1))
			})

			It("should delete one", func() {
				resp := do(http.MethodDelete, "/api/expenses/e1", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
				resp.Body.Close()
				Expect(db.expenses).To(BeEmpty())
			})

			It("should return 404 when deleting an unknown expense", func() {
				resp := do(http.MethodDelete, "/api/expenses/missing", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("categories", func() {
		It("should suggest a category", func() {
			resp := postJSON("/api/categories/suggest", map[string]any{"description": "Uber ride", "amount": 18.5})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var suggestion categorize.Suggestion
			Expect(json.Unmarshal(readBody(resp), &suggestion)).To(Succeed())
			Expect(suggestion.Success).To(BeTrue())
			Expect(suggestion.Category).To(Equal("Transportation"))
			Expect(suggestion.Source).To(Equal(categorize.SourceKeyword))
		})

		It("should require a description", func() {
			resp := postJSON("/api/categories/suggest", map[string]any{"amount": nil})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(string(readBody(resp))).To(ContainSubstring("description"))
		})

		It("should list the categories", func() {
			resp := do(http.MethodGet, "/api/categories", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var response struct {
				Success    bool     `json:"success"`
				Categories []string `json:"categories"`
			}
			Expect(json.Unmarshal(readBody(resp), &response)).To(Succeed())
			Expect(response.Categories).To(HaveLen(15))
		})

		It("should report cache stats", func() {
			resp := do(http.MethodGet, "/api/categories/cache", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var response struct {
				Stats categorize.CacheStats `json:"stats"`
			}
			Expect(json.Unmarshal(readBody(resp), &response)).To(Succeed())
			Expect(response.Stats.MaxSize).To(Equal(categorize.DefaultCacheSize))
		})

		It("should clear the cache", func() {
			resp := do(http.MethodDelete, "/api/categories/cache", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(readBody(resp))).To(ContainSubstring("Category cache cleared"))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp := do(http.MethodOptions, "/api/scans", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			resp.Body.Close()
		})

		It("should set headers on normal responses", func() {
			resp := do(http.MethodGet, "/api/scans", nil, "")
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("DELETE"))
			resp.Body.Close()
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			setupServer()
		})

		It("should accept valid credentials", func() {
			resp := do(http.MethodGet, "/api/scans", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("should reject missing credentials", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/scans")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Receipt Ledger"))
			resp.Body.Close()
		})

		It("should reject wrong credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/scans", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:wrong")))
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			resp.Body.Close()
		})
	})
})

var _ = Describe("DetectContentType", func() {
	DescribeTable("picks a content type",
		func(header, filename, want string) {
			Expect(DetectContentType(header, filename)).To(Equal(want))
		},
		Entry("uses a specific header", " Image/PNG ", "x.jpg", "image/png"),
		Entry("falls back to the extension", "", "scan.HEIC", "image/heic"),
		Entry("ignores a generic header", "application/octet-stream", "bill.pdf", "application/pdf"),
		Entry("defaults for unknown extensions", "", "notes.txt", "application/octet-stream"),
	)
})
