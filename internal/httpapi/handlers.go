package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/report"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"at":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.auth.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := a.service.ListSuppliers(r.Context())
	respond(w, http.StatusOK, suppliers, err)
}

func (a *API) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	supplier, err := a.service.CreateSupplier(r.Context(), req)
	respond(w, http.StatusCreated, supplier, err)
}

func (a *API) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := a.service.GetSupplier(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, supplier, err)
}

func (a *API) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	supplier, err := a.service.UpdateSupplier(r.Context(), r.PathValue("id"), req)
	respond(w, http.StatusOK, supplier, err)
}

func (a *API) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, a.service.DeleteSupplier(r.Context(), r.PathValue("id")))
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.service.ListCustomers(r.Context())
	respond(w, http.StatusOK, customers, err)
}

func (a *API) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	customer, err := a.service.CreateCustomer(r.Context(), req)
	respond(w, http.StatusCreated, customer, err)
}

func (a *API) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := a.service.GetCustomer(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, customer, err)
}

func (a *API) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	customer, err := a.service.UpdateCustomer(r.Context(), r.PathValue("id"), req)
	respond(w, http.StatusOK, customer, err)
}

func (a *API) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, a.service.DeleteCustomer(r.Context(), r.PathValue("id")))
}

func (a *API) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	if lowStock, _ := strconv.ParseBool(r.URL.Query().Get("low_stock")); lowStock {
		materials, err := a.service.LowStockMaterials(r.Context())
		respond(w, http.StatusOK, materials, err)
		return
	}
	materials, err := a.service.ListMaterials(r.Context())
	respond(w, http.StatusOK, materials, err)
}

func (a *API) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req domain.MaterialInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	material, err := a.service.CreateMaterial(r.Context(), req)
	respond(w, http.StatusCreated, material, err)
}

func (a *API) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	material, err := a.service.GetMaterial(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, material, err)
}

func (a *API) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	var req domain.MaterialInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	material, err := a.service.UpdateMaterial(r.Context(), r.PathValue("id"), req)
	respond(w, http.StatusOK, material, err)
}

func (a *API) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, a.service.DeleteMaterial(r.Context(), r.PathValue("id")))
}

func (a *API) handleListComponents(w http.ResponseWriter, r *http.Request) {
	components, err := a.service.ListComponents(r.Context())
	respond(w, http.StatusOK, components, err)
}

func (a *API) handleCreateComponent(w http.ResponseWriter, r *http.Request) {
	var req domain.ComponentInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	component, err := a.service.CreateComponent(r.Context(), req)
	respond(w, http.StatusCreated, component, err)
}

func (a *API) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	component, err := a.service.GetComponent(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, component, err)
}

func (a *API) handleUpdateComponent(w http.ResponseWriter, r *http.Request) {
	var req domain.ComponentInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	component, err := a.service.UpdateComponent(r.Context(), r.PathValue("id"), req)
	respond(w, http.StatusOK, component, err)
}

func (a *API) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, a.service.DeleteComponent(r.Context(), r.PathValue("id")))
}

func (a *API) handleComponentCost(w http.ResponseWriter, r *http.Request) {
	breakdown, err := a.service.ComponentCostBreakdown(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, breakdown, err)
}

func (a *API) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := a.service.ListModels(r.Context())
	respond(w, http.StatusOK, models, err)
}

func (a *API) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var req domain.ModelInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	model, err := a.service.CreateModel(r.Context(), req)
	respond(w, http.StatusCreated, model, err)
}

func (a *API) handleGetModel(w http.ResponseWriter, r *http.Request) {
	model, err := a.service.GetModel(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, model, err)
}

func (a *API) handleUpdateModel(w http.ResponseWriter, r *http.Request) {
	var req domain.ModelInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	model, err := a.service.UpdateModel(r.Context(), r.PathValue("id"), req)
	respond(w, http.StatusOK, model, err)
}

func (a *API) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, a.service.DeleteModel(r.Context(), r.PathValue("id")))
}

func (a *API) handleRecalculateModel(w http.ResponseWriter, r *http.Request) {
	model, err := a.service.RecalculateModelCost(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, model, err)
}

func (a *API) handleRecalculateAll(w http.ResponseWriter, r *http.Request) {
	models, err := a.service.RecalculateAllModelCosts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": len(models), "models": models})
}

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ListInventory(r.Context())
	respond(w, http.StatusOK, items, err)
}

func (a *API) handleCreateInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	item, err := a.service.CreateInventoryItem(r.Context(), req)
	respond(w, http.StatusCreated, item, err)
}

func (a *API) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	item, err := a.service.GetInventoryItem(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, item, err)
}

func (a *API) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryUpdate
	if !decodeOrReject(w, r, &req) {
		return
	}
	item, err := a.service.UpdateInventoryItem(r.Context(), r.PathValue("id"), req)
	respond(w, http.StatusOK, item, err)
}

func (a *API) handleDeleteInventory(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, a.service.DeleteInventoryItem(r.Context(), r.PathValue("id")))
}

func (a *API) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.TransactionFilter{
		Type:       domain.TransactionType(firstQuery(query.Get("type"), query.Get("transaction_type"))),
		Status:     domain.TransactionStatus(query.Get("status")),
		SupplierID: firstQuery(query.Get("supplier_id"), query.Get("supplierId")),
		CustomerID: firstQuery(query.Get("customer_id"), query.Get("customerId")),
	}
	txs, err := a.service.ListTransactions(r.Context(), filter)
	respond(w, http.StatusOK, txs, err)
}

func (a *API) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.TransactionInput
	if !decodeOrReject(w, r, &req) {
		return
	}
	tx, err := a.service.CreateTransaction(r.Context(), req)
	respond(w, http.StatusCreated, tx, err)
}

func (a *API) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := a.service.GetTransaction(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, tx, err)
}

func (a *API) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.TransactionUpdate
	if !decodeOrReject(w, r, &req) {
		return
	}
	tx, err := a.service.UpdateTransaction(r.Context(), r.PathValue("id"), req)
	respond(w, http.StatusOK, tx, err)
}

func (a *API) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	respondDeleted(w, a.service.DeleteTransaction(r.Context(), r.PathValue("id")))
}

func (a *API) handleTransactionStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.StatusChangeRequest
	if !decodeOrReject(w, r, &req) {
		return
	}
	tx, err := a.service.TransitionStatus(r.Context(), r.PathValue("id"), req.Status)
	respond(w, http.StatusOK, tx, err)
}

func (a *API) handleLowStockReport(w http.ResponseWriter, r *http.Request) {
	materials, err := a.service.LowStockMaterials(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := report.WriteLowStock(&buf, materials, now); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.LowStockFilename(now)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (a *API) handleKioskStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.kiosk.Status())
}

func (a *API) handleKioskReset(w http.ResponseWriter, r *http.Request) {
	status, err := a.kiosk.ResetNow(r.Context())
	respond(w, http.StatusOK, status, err)
}

func (a *API) handleDatabaseReset(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.ResetDatabase(r.Context())
	respond(w, http.StatusOK, result, err)
}

func (a *API) handleInitTestData(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.LoadDemoData(r.Context())
	respond(w, http.StatusOK, result, err)
}

func firstQuery(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
