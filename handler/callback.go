package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/famzila/contract-whisperer-backend/model"
	"github.com/famzila/contract-whisperer-backend/onboarding"
	"github.com/famzila/contract-whisperer-backend/pkg/logger"
	"github.com/famzila/contract-whisperer-backend/service"
)

type CallbackHandler struct {
	extractor  *service.ExtractorService
	store      *service.ContractStore
	onboarding *onboarding.Manager
}

func NewCallbackHandler(extractor *service.ExtractorService, store *service.ContractStore, ob *onboarding.Manager) *CallbackHandler {
	return &CallbackHandler{
		extractor:  extractor,
		store:      store,
		onboarding: ob,
	}
}

type CallbackRequest struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

type CallbackContent struct {
	TaskID   string `json:"task_id"`
	DataID   string `json:"data_id"`
	State    string `json:"state"`
	TextURL  string `json:"text_url"`
	ErrorMsg string `json:"err_msg"`
}

// HandleCallback receives the push notification from the extraction API.
// DataID carries our contract ID; the checksum proves the sender knows the
// shared seed.
func (h *CallbackHandler) HandleCallback(c *gin.Context) {
	var req CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var content CallbackContent
	if err := json.Unmarshal([]byte(req.Content), &content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	if !h.extractor.VerifyCallback(req.Checksum, req.Content, content.DataID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Checksum mismatch"})
		return
	}

	contract := h.store.Get(content.DataID)
	if contract == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}

	ctx := logger.WithContract(c.Request.Context(), contract.ID)

	switch content.State {
	case "done":
		text, err := h.extractor.FetchTextResult(content.TextURL)
		if err != nil {
			logger.Error(ctx, "fetching extracted text failed", "error", err)
			h.store.UpdateStatus(contract.ID, model.StatusFailed, "Failed to fetch extracted text: "+err.Error())
			break
		}
		h.store.SetText(contract.ID, text)
		if _, err := h.onboarding.Submit(ctx, contract.ID, "", text); err != nil {
			logger.Error(ctx, "onboarding submit failed", "error", err)
			h.store.UpdateStatus(contract.ID, model.StatusFailed, err.Error())
		}
	case "failed":
		h.store.UpdateStatus(contract.ID, model.StatusFailed, content.ErrorMsg)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}
