package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/famzila/contract-whisperer-backend/middleware"
	"github.com/famzila/contract-whisperer-backend/model"
	"github.com/famzila/contract-whisperer-backend/onboarding"
	"github.com/famzila/contract-whisperer-backend/pkg/logger"
	"github.com/famzila/contract-whisperer-backend/service"
)

const (
	pollInterval    = 5 * time.Second
	maxPollAttempts = 60
)

type ContractHandler struct {
	minio      *service.MinioService
	extractor  *service.ExtractorService
	store      *service.ContractStore
	onboarding *onboarding.Manager
}

func NewContractHandler(minio *service.MinioService, extractor *service.ExtractorService, store *service.ContractStore, ob *onboarding.Manager) *ContractHandler {
	return &ContractHandler{
		minio:      minio,
		extractor:  extractor,
		store:      store,
		onboarding: ob,
	}
}

// Upload accepts a PDF or DOCX file, stores it and starts text extraction.
// The optional "language" form field is the user's preferred output
// language.
func (h *ContractHandler) Upload(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	// Sniff the real content type rather than trusting the header.
	head := make([]byte, 3072)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	contentType := service.SniffContentType(head[:n])
	if !service.IsSupportedUpload(contentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF and DOCX files are allowed"})
		return
	}

	contractID := uuid.New().String()
	objectName := h.minio.ObjectName(tenant, contractID, header.Filename)

	if err := h.minio.UploadDocument(c.Request.Context(), objectName, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload file: " + err.Error()})
		return
	}

	docURL, err := h.minio.GetPresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	contract := &model.Contract{
		ID:          contractID,
		Filename:    header.Filename,
		Tenant:      tenant,
		DocumentURL: docURL,
		Status:      model.StatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	h.store.Save(contract)

	go h.processExtraction(contract, docURL, c.PostForm("language"))

	c.JSON(http.StatusOK, gin.H{
		"id":           contractID,
		"filename":     header.Filename,
		"document_url": docURL,
		"status":       model.StatusPending,
	})
}

type PasteRequest struct {
	Text     string `json:"text" binding:"required"`
	Filename string `json:"filename"`
	Language string `json:"language"`
}

// Paste accepts raw contract text and skips the extraction step entirely.
func (h *ContractHandler) Paste(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	var req PasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = "pasted-text"
	}

	contract := &model.Contract{
		ID:        uuid.New().String(),
		Filename:  filename,
		Tenant:    tenant,
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	h.store.Save(contract)

	text := service.NormalizeText(req.Text)
	h.store.SetText(contract.ID, text)

	snap, err := h.onboarding.Submit(c.Request.Context(), contract.ID, req.Language, text)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         contract.ID,
		"filename":   filename,
		"status":     h.store.Get(contract.ID).Status,
		"onboarding": snap,
	})
}

// processExtraction drives the external extraction task and feeds the
// resulting text into onboarding. Runs detached from the request.
func (h *ContractHandler) processExtraction(contract *model.Contract, docURL, preferredLanguage string) {
	ctx := logger.WithContract(context.Background(), contract.ID)
	logger.Info(ctx, "starting text extraction", "document_url", docURL)

	h.store.UpdateStatus(contract.ID, model.StatusParsing, "")

	resp, err := h.extractor.CreateTask(docURL, contract.ID)
	if err != nil {
		logger.Error(ctx, "extraction task creation failed", "error", err)
		h.store.UpdateStatus(contract.ID, model.StatusFailed, err.Error())
		return
	}

	taskID := resp.Data.TaskID
	h.store.SetExtractTaskID(contract.ID, taskID)

	h.pollExtraction(ctx, contract.ID, taskID, preferredLanguage)
}

func (h *ContractHandler) pollExtraction(ctx context.Context, contractID, taskID, preferredLanguage string) {
	for i := 0; i < maxPollAttempts; i++ {
		time.Sleep(pollInterval)

		status, err := h.extractor.GetTaskStatus(taskID)
		if err != nil {
			logger.Warn(ctx, "extraction poll failed", "attempt", i+1, "error", err)
			continue
		}

		switch status.Data.State {
		case "done":
			text, err := h.extractor.FetchTextResult(status.Data.TextURL)
			if err != nil {
				logger.Error(ctx, "fetching extracted text failed", "error", err)
				h.store.UpdateStatus(contractID, model.StatusFailed, "Failed to fetch extracted text: "+err.Error())
				return
			}
			h.store.SetText(contractID, text)
			if _, err := h.onboarding.Submit(ctx, contractID, preferredLanguage, text); err != nil {
				logger.Error(ctx, "onboarding submit failed", "error", err)
				h.store.UpdateStatus(contractID, model.StatusFailed, err.Error())
			}
			return
		case "failed":
			logger.Error(ctx, "extraction task failed", "error", status.Data.ErrorMsg)
			h.store.UpdateStatus(contractID, model.StatusFailed, status.Data.ErrorMsg)
			return
		}
	}

	logger.Error(ctx, "extraction polling timed out")
	h.store.UpdateStatus(contractID, model.StatusFailed, "Extraction polling timeout")
}

// List returns all contracts for the current tenant, without text or
// analysis payloads.
func (h *ContractHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	contracts := h.store.GetByTenant(tenant)

	result := make([]gin.H, len(contracts))
	for i, contract := range contracts {
		result[i] = gin.H{
			"id":           contract.ID,
			"filename":     contract.Filename,
			"status":       contract.Status,
			"document_url": contract.DocumentURL,
			"created_at":   contract.CreatedAt.Format(time.RFC3339),
			"updated_at":   contract.UpdatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{"contracts": result})
}

// Get returns a single contract including classification and analysis.
func (h *ContractHandler) Get(c *gin.Context) {
	contract := tenantContract(c, h.store)
	if contract == nil {
		return
	}
	c.JSON(http.StatusOK, contract)
}

// GetStatus returns the processing status of a contract.
func (h *ContractHandler) GetStatus(c *gin.Context) {
	contract := tenantContract(c, h.store)
	if contract == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        contract.ID,
		"status":    contract.Status,
		"error_msg": contract.ErrorMsg,
	})
}

// Delete removes a contract and its stored document.
func (h *ContractHandler) Delete(c *gin.Context) {
	contract := tenantContract(c, h.store)
	if contract == nil {
		return
	}

	if contract.DocumentURL != "" {
		objectName := h.minio.ObjectName(contract.Tenant, contract.ID, contract.Filename)
		if err := h.minio.DeleteDocument(c.Request.Context(), objectName); err != nil {
			logger.Warn(c.Request.Context(), "deleting stored document failed", "contract_id", contract.ID, "error", err)
		}
	}
	h.store.Delete(contract.ID)

	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
}

// OnboardingStatus reports the current onboarding step and active prompt.
func (h *ContractHandler) OnboardingStatus(c *gin.Context) {
	contract := tenantContract(c, h.store)
	if contract == nil {
		return
	}

	snap, err := h.onboarding.Status(contract.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No onboarding session for contract"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

type LanguageChoiceRequest struct {
	Language string `json:"language" binding:"required"`
}

// ChooseLanguage answers the language-selection prompt.
func (h *ContractHandler) ChooseLanguage(c *gin.Context) {
	contract := tenantContract(c, h.store)
	if contract == nil {
		return
	}

	var req LanguageChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	snap, err := h.onboarding.ChooseLanguage(contract.ID, req.Language)
	if err != nil {
		h.onboardingError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type RoleChoiceRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChooseRole answers the role prompt and starts the analysis.
func (h *ContractHandler) ChooseRole(c *gin.Context) {
	contract := tenantContract(c, h.store)
	if contract == nil {
		return
	}

	var req RoleChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	snap, err := h.onboarding.ChooseRole(contract.ID, req.Role)
	if err != nil {
		h.onboardingError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ResetOnboarding rewinds the flow so the user can start over.
func (h *ContractHandler) ResetOnboarding(c *gin.Context) {
	contract := tenantContract(c, h.store)
	if contract == nil {
		return
	}

	snap, err := h.onboarding.Reset(contract.ID)
	if err != nil {
		h.onboardingError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// tenantContract loads the contract from the path ID, enforcing tenant
// ownership. Writes a 404 and returns nil when not found.
func tenantContract(c *gin.Context, store *service.ContractStore) *model.Contract {
	tenant := middleware.GetTenant(c)
	contract := store.Get(c.Param("id"))
	if contract == nil || contract.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return nil
	}
	return contract
}

func (h *ContractHandler) onboardingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, onboarding.ErrUnknownSession):
		c.JSON(http.StatusNotFound, gin.H{"error": "No onboarding session for contract"})
	case errors.Is(err, onboarding.ErrInvalidStep):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
