package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/famzila/contract-whisperer-backend/middleware"
	"github.com/famzila/contract-whisperer-backend/service"
)

// OutputLanguageReporter tells the handler which language the onboarding
// flow promised the analysis in.
type OutputLanguageReporter interface {
	OutputLanguage(contractID string) (lang string, needsTranslation bool, err error)
}

type AnalysisHandler struct {
	store      *service.ContractStore
	translator *service.TranslationService
	cache      *service.AnalysisCache
	languages  OutputLanguageReporter
}

func NewAnalysisHandler(store *service.ContractStore, translator *service.TranslationService, cache *service.AnalysisCache, languages OutputLanguageReporter) *AnalysisHandler {
	return &AnalysisHandler{
		store:      store,
		translator: translator,
		cache:      cache,
		languages:  languages,
	}
}

// GetAnalysis returns the (possibly still partial) analysis. A "language"
// query parameter asks for a translated copy; without one, an output
// language chosen during onboarding that differs from the document's
// language triggers the translation pass. If translation fails the
// original is returned unchanged.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	contract := tenantContract(c, h.store)
	if contract == nil {
		return
	}
	if contract.Analysis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis for contract"})
		return
	}

	target := c.Query("language")
	if target == "" && h.languages != nil {
		if lang, needs, err := h.languages.OutputLanguage(contract.ID); err == nil && needs {
			target = lang
		}
	}

	analysis := contract.Analysis
	if target != "" && !strings.EqualFold(target, analysis.Language) {
		analysis = h.translator.TranslateAnalysis(c.Request.Context(), analysis, analysis.Language, target)
	}

	c.JSON(http.StatusOK, analysis)
}

type TranslateRequest struct {
	Language string `json:"language" binding:"required"`
}

// Translate produces a translated copy of the finished analysis. The
// stored analysis keeps its original language.
func (h *AnalysisHandler) Translate(c *gin.Context) {
	contract := tenantContract(c, h.store)
	if contract == nil {
		return
	}
	if contract.Analysis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis for contract"})
		return
	}

	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	analysis := contract.Analysis
	translated := h.translator.TranslateAnalysis(c.Request.Context(), analysis, analysis.Language, req.Language)
	c.JSON(http.StatusOK, translated)
}

// ListCached returns the tenant's cached analyses, newest first.
func (h *AnalysisHandler) ListCached(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	entries, err := h.cache.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read analysis cache"})
		return
	}

	result := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		if e.Tenant != tenant {
			continue
		}
		result = append(result, gin.H{
			"contract_id": e.ContractID,
			"filename":    e.Filename,
			"cached_at":   e.CachedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"analyses": result})
}

// GetCached returns one cached analysis.
func (h *AnalysisHandler) GetCached(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	entry, err := h.cache.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrCacheMiss) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read analysis cache"})
		return
	}
	if entry.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// DeleteCached evicts one cached analysis.
func (h *AnalysisHandler) DeleteCached(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	entry, err := h.cache.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrCacheMiss) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read analysis cache"})
		return
	}
	if entry.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
		return
	}

	if err := h.cache.Delete(entry.ContractID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete analysis"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Analysis deleted"})
}

