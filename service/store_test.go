package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/famzila/contract-whisperer-backend/config"
	"github.com/famzila/contract-whisperer-backend/model"
)

func newTestStore(maxContracts int) *ContractStore {
	return NewContractStore(&config.StoreConfig{MaxContracts: maxContracts})
}

func TestContractStoreSaveAndGet(t *testing.T) {
	store := newTestStore(100)

	contract := &model.Contract{
		ID:        "test-id-1",
		Filename:  "lease.pdf",
		Tenant:    "tenant1",
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	}

	store.Save(contract)

	retrieved := store.Get("test-id-1")
	if retrieved == nil {
		t.Fatal("Expected to retrieve contract")
	}
	if retrieved.Filename != "lease.pdf" {
		t.Errorf("Expected filename lease.pdf, got %s", retrieved.Filename)
	}

	if store.Get("non-existent") != nil {
		t.Error("Expected nil for non-existent contract")
	}
}

func TestContractStoreGetByTenant(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Contract{ID: "1", Tenant: "tenant1", CreatedAt: time.Now()})
	store.Save(&model.Contract{ID: "2", Tenant: "tenant1", CreatedAt: time.Now()})
	store.Save(&model.Contract{ID: "3", Tenant: "tenant2", CreatedAt: time.Now()})

	if got := len(store.GetByTenant("tenant1")); got != 2 {
		t.Errorf("Expected 2 contracts for tenant1, got %d", got)
	}
	if got := len(store.GetByTenant("tenant2")); got != 1 {
		t.Errorf("Expected 1 contract for tenant2, got %d", got)
	}
	if got := len(store.GetByTenant("tenant3")); got != 0 {
		t.Errorf("Expected 0 contracts for tenant3, got %d", got)
	}
}

func TestContractStoreDelete(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Contract{ID: "delete-me", CreatedAt: time.Now()})

	if store.Get("delete-me") == nil {
		t.Fatal("Expected contract to exist before delete")
	}

	store.Delete("delete-me")

	if store.Get("delete-me") != nil {
		t.Error("Expected contract to be deleted")
	}
}

func TestContractStoreUpdateStatus(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Contract{
		ID:        "status-test",
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	})

	store.UpdateStatus("status-test", model.StatusCompleted, "")

	contract := store.Get("status-test")
	if contract.Status != model.StatusCompleted {
		t.Errorf("Expected status %s, got %s", model.StatusCompleted, contract.Status)
	}

	store.UpdateStatus("status-test", model.StatusFailed, "test error")
	contract = store.Get("status-test")
	if contract.ErrorMsg != "test error" {
		t.Errorf("Expected error msg 'test error', got '%s'", contract.ErrorMsg)
	}

	// Update on non-existent id should not panic
	store.UpdateStatus("non-existent", model.StatusCompleted, "")
}

func TestContractStoreSetTextAndClassification(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Contract{ID: "c1", CreatedAt: time.Now()})

	store.SetText("c1", "This Agreement...")
	store.SetClassification("c1", &model.ClassificationResult{
		IsContract:   true,
		Confidence:   95,
		DocumentType: model.DocTypeContract,
	})

	c := store.Get("c1")
	if c.Text != "This Agreement..." {
		t.Errorf("Expected text to be stored, got %q", c.Text)
	}
	if c.Classification == nil || !c.Classification.IsContract {
		t.Errorf("Expected classification stored, got %+v", c.Classification)
	}
}

func TestContractStoreSetExtractTaskID(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Contract{ID: "c1", CreatedAt: time.Now()})

	store.SetExtractTaskID("c1", "task-42")

	c := store.Get("c1")
	if c.ExtractTaskID != "task-42" {
		t.Errorf("Expected task id task-42, got %q", c.ExtractTaskID)
	}

	// Update on non-existent id should not panic
	store.SetExtractTaskID("non-existent", "task-1")
}

func TestContractStoreSetAnalysis(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Contract{ID: "c1", CreatedAt: time.Now()})

	analysis := model.NewAnalysis("c1", model.RoleTenant, "en")
	store.SetAnalysis("c1", analysis)

	c := store.Get("c1")
	if c.Analysis == nil || c.Analysis.Role != model.RoleTenant {
		t.Errorf("Expected analysis stored, got %+v", c.Analysis)
	}
}

func TestContractStoreEviction(t *testing.T) {
	store := newTestStore(3)

	base := time.Now()
	for i := 0; i < 5; i++ {
		store.Save(&model.Contract{
			ID:        fmt.Sprintf("c%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	if store.Count() != 3 {
		t.Errorf("Expected 3 contracts after eviction, got %d", store.Count())
	}
	if store.Get("c0") != nil || store.Get("c1") != nil {
		t.Error("Expected oldest contracts to be evicted")
	}
	if store.Get("c4") == nil {
		t.Error("Expected newest contract to survive eviction")
	}
}

func TestContractStoreUnlimited(t *testing.T) {
	store := newTestStore(0)

	for i := 0; i < 50; i++ {
		store.Save(&model.Contract{ID: fmt.Sprintf("c%d", i), CreatedAt: time.Now()})
	}

	if store.Count() != 50 {
		t.Errorf("Expected 50 contracts with unlimited store, got %d", store.Count())
	}
}
