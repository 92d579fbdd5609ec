package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/famzila/contract-whisperer-backend/config"
	"github.com/famzila/contract-whisperer-backend/model"
	"github.com/famzila/contract-whisperer-backend/onboarding"
	"github.com/famzila/contract-whisperer-backend/service"
)

type fixedClassifier struct {
	result model.ClassificationResult
}

func (c *fixedClassifier) Classify(_ context.Context, _ string) (model.ClassificationResult, error) {
	return c.result, nil
}

type fixedLanguages struct {
	detected service.LanguageDetection
	mismatch bool
}

func (l *fixedLanguages) Detect(_ string) service.LanguageDetection { return l.detected }
func (l *fixedLanguages) NeedsSelection(_ service.LanguageDetection, _ string) bool {
	return l.mismatch
}

type fixedParties struct {
	result model.PartyDetectionResult
}

func (p *fixedParties) Detect(_ context.Context, _ string) model.PartyDetectionResult {
	return p.result
}

type emptyAnalyzer struct{}

func (emptyAnalyzer) Extract(_ context.Context, _ string, _ model.UserRole) <-chan service.SectionResult {
	ch := make(chan service.SectionResult)
	close(ch)
	return ch
}

type handlerFixture struct {
	store      *service.ContractStore
	handler    *ContractHandler
	onboarding *onboarding.Manager
	router     *gin.Engine
}

func newFixture(t *testing.T, classification model.ClassificationResult) *handlerFixture {
	t.Helper()

	store := service.NewContractStore(&config.StoreConfig{MaxContracts: 10})
	minioSvc, err := service.NewMinioService(&config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "testsecret",
		Bucket:    "contracts",
	})
	if err != nil {
		t.Fatalf("Failed to create minio service: %v", err)
	}
	extractor := service.NewExtractorService(&config.ExtractorConfig{
		APIURL: "http://localhost:0",
		Seed:   "test-seed",
	})

	mgr := onboarding.NewManager(onboarding.Deps{
		Classifier:      &fixedClassifier{result: classification},
		Languages:       &fixedLanguages{detected: service.LanguageDetection{Code: "en", Reliable: true}},
		Parties:         &fixedParties{result: model.PartyDetectionResult{Confidence: model.PartyConfidenceLow}},
		Analyzer:        emptyAnalyzer{},
		Store:           store,
		DefaultLanguage: "en",
	})

	h := NewContractHandler(minioSvc, extractor, store, mgr)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("username", "testuser")
		c.Set("tenant", "tenant1")
	})
	router.POST("/contracts/upload", h.Upload)
	router.POST("/contracts/paste", h.Paste)
	router.GET("/contracts", h.List)
	router.GET("/contracts/:id", h.Get)
	router.GET("/contracts/:id/status", h.GetStatus)
	router.DELETE("/contracts/:id", h.Delete)
	router.GET("/contracts/:id/onboarding", h.OnboardingStatus)
	router.POST("/contracts/:id/language", h.ChooseLanguage)
	router.POST("/contracts/:id/role", h.ChooseRole)
	router.POST("/contracts/:id/reset", h.ResetOnboarding)

	return &handlerFixture{store: store, handler: h, onboarding: mgr, router: router}
}

func acceptedClassification() model.ClassificationResult {
	return model.ClassificationResult{
		IsContract:   true,
		Confidence:   95,
		DocumentType: model.DocTypeContract,
		Reason:       "Contains 5 contract indicators",
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	f := newFixture(t, acceptedClassification())

	req := httptest.NewRequest("POST", "/contracts/upload", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestUploadRejectsUnsupportedFileType(t *testing.T) {
	f := newFixture(t, acceptedClassification())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "image.png")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	// PNG magic bytes
	part.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0})
	mw.Close()

	req := httptest.NewRequest("POST", "/contracts/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestPasteStartsOnboarding(t *testing.T) {
	f := newFixture(t, acceptedClassification())

	body, _ := json.Marshal(PasteRequest{Text: "This Agreement is made between the parties...", Filename: "agreement.txt"})
	req := httptest.NewRequest("POST", "/contracts/paste", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID         string               `json:"id"`
		Status     string               `json:"status"`
		Onboarding *onboarding.Snapshot `json:"onboarding"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.ID == "" {
		t.Error("Expected contract ID in response")
	}
	if resp.Status != model.StatusOnboarding {
		t.Errorf("Expected status %q, got %q", model.StatusOnboarding, resp.Status)
	}
	if resp.Onboarding == nil {
		t.Fatal("Expected onboarding snapshot in response")
	}

	contract := f.store.Get(resp.ID)
	if contract == nil {
		t.Fatal("Expected contract in store")
	}
	if contract.Text == "" {
		t.Error("Expected extracted text stored on contract")
	}
}

func TestPasteRejectsNonContract(t *testing.T) {
	f := newFixture(t, model.ClassificationResult{
		IsContract:   false,
		Confidence:   90,
		DocumentType: model.DocTypeRecipe,
		Reason:       "Document contains non-legal language patterns",
	})

	body, _ := json.Marshal(PasteRequest{Text: "Ingredients: flour, sugar..."})
	req := httptest.NewRequest("POST", "/contracts/paste", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != model.StatusRejected {
		t.Errorf("Expected status %q, got %q", model.StatusRejected, resp.Status)
	}

	contract := f.store.Get(resp.ID)
	if contract == nil || contract.ErrorMsg == "" {
		t.Error("Expected rejection message on contract")
	}
}

func TestListFiltersByTenant(t *testing.T) {
	f := newFixture(t, acceptedClassification())
	f.store.Save(&model.Contract{ID: "c1", Filename: "a.pdf", Tenant: "tenant1", Status: model.StatusCompleted, CreatedAt: time.Now()})
	f.store.Save(&model.Contract{ID: "c2", Filename: "b.pdf", Tenant: "tenant2", Status: model.StatusPending, CreatedAt: time.Now()})

	req := httptest.NewRequest("GET", "/contracts", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp struct {
		Contracts []map[string]any `json:"contracts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Contracts) != 1 {
		t.Fatalf("Expected 1 contract, got %d", len(resp.Contracts))
	}
	if resp.Contracts[0]["id"] != "c1" {
		t.Errorf("Expected contract c1, got %v", resp.Contracts[0]["id"])
	}
}

func TestGetEnforcesTenantOwnership(t *testing.T) {
	f := newFixture(t, acceptedClassification())
	f.store.Save(&model.Contract{ID: "c2", Filename: "b.pdf", Tenant: "tenant2", Status: model.StatusPending, CreatedAt: time.Now()})

	req := httptest.NewRequest("GET", "/contracts/c2", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for other tenant's contract, got %d", w.Code)
	}
}

func TestGetStatusReturnsErrorMessage(t *testing.T) {
	f := newFixture(t, acceptedClassification())
	f.store.Save(&model.Contract{ID: "c1", Tenant: "tenant1", Status: model.StatusFailed, ErrorMsg: "Extraction polling timeout", CreatedAt: time.Now()})

	req := httptest.NewRequest("GET", "/contracts/c1/status", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != model.StatusFailed {
		t.Errorf("Expected status %q, got %q", model.StatusFailed, resp["status"])
	}
	if resp["error_msg"] == "" {
		t.Error("Expected error message in status response")
	}
}

func TestDeleteRemovesContract(t *testing.T) {
	f := newFixture(t, acceptedClassification())
	f.store.Save(&model.Contract{ID: "c1", Tenant: "tenant1", Status: model.StatusCompleted, CreatedAt: time.Now()})

	req := httptest.NewRequest("DELETE", "/contracts/c1", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if f.store.Get("c1") != nil {
		t.Error("Expected contract to be removed from store")
	}
}

func TestOnboardingEndpoints(t *testing.T) {
	f := newFixture(t, acceptedClassification())

	// No session yet
	req := httptest.NewRequest("GET", "/contracts/c1/onboarding", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 before paste, got %d", w.Code)
	}

	// Start a flow via paste
	body, _ := json.Marshal(PasteRequest{Text: "This Agreement..."})
	req = httptest.NewRequest("POST", "/contracts/paste", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Paste failed with status %d", w.Code)
	}
	var pasteResp struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &pasteResp)

	// Parties resolve synchronously in the fixture; wait for the role prompt.
	deadline := time.Now().Add(time.Second)
	for {
		snap, err := f.onboarding.Status(pasteResp.ID)
		if err == nil && snap.Step == onboarding.StateAwaitingRoleChoice {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for role prompt")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Language choice is not pending, so it conflicts.
	body, _ = json.Marshal(LanguageChoiceRequest{Language: "fr"})
	req = httptest.NewRequest("POST", "/contracts/"+pasteResp.ID+"/language", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for out-of-order language choice, got %d", w.Code)
	}

	// Role choice proceeds to analysis.
	body, _ = json.Marshal(RoleChoiceRequest{Role: "tenant"})
	req = httptest.NewRequest("POST", "/contracts/"+pasteResp.ID+"/role", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for role choice, got %d: %s", w.Code, w.Body.String())
	}

	// Reset rewinds to idle.
	req = httptest.NewRequest("POST", "/contracts/"+pasteResp.ID+"/reset", nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for reset, got %d", w.Code)
	}
	var snap onboarding.Snapshot
	json.Unmarshal(w.Body.Bytes(), &snap)
	if snap.Step != onboarding.StateIdle {
		t.Errorf("Expected step %q after reset, got %q", onboarding.StateIdle, snap.Step)
	}
}
