package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mmmarc2025/sparkling-service/internal/catalog"
	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

// CatalogRepository is the catalog CRUD surface the admin API needs.
type CatalogRepository interface {
	ListServices(ctx context.Context) ([]catalog.Service, error)
	CreateService(ctx context.Context, svc *catalog.Service) error
	UpdateService(ctx context.Context, svc *catalog.Service) error
	DeleteService(ctx context.Context, id uuid.UUID) error
	ListStores(ctx context.Context) ([]catalog.Store, error)
	CreateStore(ctx context.Context, s *catalog.Store) error
	UpdateStore(ctx context.Context, s *catalog.Store) error
	DeleteStore(ctx context.Context, id uuid.UUID) error
}

// AdminCatalogHandler manages the service menu and store list.
type AdminCatalogHandler struct {
	repo   CatalogRepository
	logger *logging.Logger
}

func NewAdminCatalogHandler(repo CatalogRepository, logger *logging.Logger) *AdminCatalogHandler {
	if repo == nil {
		panic("handlers: catalog repository is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminCatalogHandler{repo: repo, logger: logger}
}

// ServiceRequest is the write payload for service rows.
type ServiceRequest struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	PriceSmall  *float64 `json:"price_small,omitempty"`
	PriceMedium *float64 `json:"price_medium,omitempty"`
	PriceLarge  *float64 `json:"price_large,omitempty"`
	PriceFlat   *float64 `json:"price_flat,omitempty"`
	Active      bool     `json:"is_active"`
}

func (req *ServiceRequest) validate() error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	switch req.Category {
	case catalog.CategoryTiered, catalog.CategoryFlat:
		return nil
	default:
		return errors.New("category must be TIERED or FLAT")
	}
}

// StoreRequest is the write payload for store rows.
type StoreRequest struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Active  bool    `json:"is_active"`
}

func (req *StoreRequest) validate() error {
	if req.Name == "" {
		return errors.New("name is required")
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

// ListServices returns every service row, active or not.
// GET /admin/services
func (h *AdminCatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.repo.ListServices(r.Context())
	if err != nil {
		h.logger.Error("failed to list services", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list services")
		return
	}
	if services == nil {
		services = []catalog.Service{}
	}
	writeJSON(w, http.StatusOK, services)
}

// CreateService adds a service to the menu.
// POST /admin/services
func (h *AdminCatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc := catalog.Service{
		Name:        req.Name,
		Category:    req.Category,
		PriceSmall:  req.PriceSmall,
		PriceMedium: req.PriceMedium,
		PriceLarge:  req.PriceLarge,
		PriceFlat:   req.PriceFlat,
		Active:      req.Active,
	}
	if err := h.repo.CreateService(r.Context(), &svc); err != nil {
		h.logger.Error("failed to create service", "error", err, "name", req.Name)
		writeJSONError(w, http.StatusInternalServerError, "failed to create service")
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

// UpdateService rewrites a service row.
// PUT /admin/services/{id}
func (h *AdminCatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var req ServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	svc := catalog.Service{
		ID:          id,
		Name:        req.Name,
		Category:    req.Category,
		PriceSmall:  req.PriceSmall,
		PriceMedium: req.PriceMedium,
		PriceLarge:  req.PriceLarge,
		PriceFlat:   req.PriceFlat,
		Active:      req.Active,
	}
	err := h.repo.UpdateService(r.Context(), &svc)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "service not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to update service", "error", err, "service_id", id)
		writeJSONError(w, http.StatusInternalServerError, "failed to update service")
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// DeleteService removes a service from the menu.
// DELETE /admin/services/{id}
func (h *AdminCatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	err := h.repo.DeleteService(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "service not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete service", "error", err, "service_id", id)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete service")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListStores returns every store row.
// GET /admin/stores
func (h *AdminCatalogHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.repo.ListStores(r.Context())
	if err != nil {
		h.logger.Error("failed to list stores", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list stores")
		return
	}
	if stores == nil {
		stores = []catalog.Store{}
	}
	writeJSON(w, http.StatusOK, stores)
}

// CreateStore adds a store.
// POST /admin/stores
func (h *AdminCatalogHandler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	store := catalog.Store{
		Name:    req.Name,
		Address: req.Address,
		Lat:     req.Lat,
		Lng:     req.Lng,
		Active:  req.Active,
	}
	if err := h.repo.CreateStore(r.Context(), &store); err != nil {
		h.logger.Error("failed to create store", "error", err, "name", req.Name)
		writeJSONError(w, http.StatusInternalServerError, "failed to create store")
		return
	}
	writeJSON(w, http.StatusCreated, store)
}

// UpdateStore rewrites a store row.
// PUT /admin/stores/{id}
func (h *AdminCatalogHandler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var req StoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	store := catalog.Store{
		ID:      id,
		Name:    req.Name,
		Address: req.Address,
		Lat:     req.Lat,
		Lng:     req.Lng,
		Active:  req.Active,
	}
	err := h.repo.UpdateStore(r.Context(), &store)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "store not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to update store", "error", err, "store_id", id)
		writeJSONError(w, http.StatusInternalServerError, "failed to update store")
		return
	}
	writeJSON(w, http.StatusOK, store)
}

// DeleteStore removes a store.
// DELETE /admin/stores/{id}
func (h *AdminCatalogHandler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	err := h.repo.DeleteStore(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "store not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete store", "error", err, "store_id", id)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete store")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
