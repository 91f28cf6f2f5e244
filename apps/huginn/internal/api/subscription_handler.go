package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"huginn/apps/huginn/internal/chain"
	"huginn/apps/huginn/internal/network"
	"huginn/apps/huginn/internal/report"
	"huginn/apps/huginn/internal/repository"
)

// SubscriptionStore is the subscription state exposed over the API.
type SubscriptionStore interface {
	AddAddress(subscriberID, address string) error
	RemoveAddress(subscriberID, address string) error
	Addresses(subscriberID string) []string
}

// SubscriptionHandler handles subscriber address endpoints
type SubscriptionHandler struct {
	store    SubscriptionStore
	client   chain.Client
	registry *network.Registry
	logger   *zap.Logger
}

func NewSubscriptionHandler(store SubscriptionStore, client chain.Client, registry *network.Registry, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		store:    store,
		client:   client,
		registry: registry,
		logger:   logger,
	}
}

// ListAddresses handles GET /api/subscribers/{subscriber_id}/addresses
func (h *SubscriptionHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	subscriberID := mux.Vars(r)["subscriber_id"]

	addresses := h.store.Addresses(subscriberID)
	if addresses == nil {
		addresses = []string{}
	}

	h.writeJSONResponse(w, http.StatusOK, AddressesResponse{
		SubscriberID: subscriberID,
		Addresses:    addresses,
	})
}

// AddAddress handles POST /api/subscribers/{subscriber_id}/addresses
func (h *SubscriptionHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	subscriberID := mux.Vars(r)["subscriber_id"]

	var req AddAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	err := h.store.AddAddress(subscriberID, req.Address)
	switch {
	case err == nil:
		h.writeJSONResponse(w, http.StatusCreated, AddressesResponse{
			SubscriberID: subscriberID,
			Addresses:    h.store.Addresses(subscriberID),
		})
	case errors.Is(err, repository.ErrInvalidFormat):
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_wallet_address",
			"Address must start with 'cosmos1', 'celestia1' or 'osmo1' followed by 38 lowercase alphanumerics")
	case errors.Is(err, repository.ErrAlreadyExists):
		h.writeErrorResponse(w, http.StatusConflict, "address_already_exists", "Address is already registered")
	default:
		h.logger.Error("Failed to add address",
			zap.String("subscriber_id", subscriberID),
			zap.String("address", req.Address),
			zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "store_error", "Failed to save subscription")
	}
}

// RemoveAddress handles DELETE /api/subscribers/{subscriber_id}/addresses/{address}
func (h *SubscriptionHandler) RemoveAddress(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	subscriberID, address := vars["subscriber_id"], vars["address"]

	err := h.store.RemoveAddress(subscriberID, address)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repository.ErrNotFound):
		h.writeErrorResponse(w, http.StatusNotFound, "address_not_found", "Address is not registered")
	default:
		h.logger.Error("Failed to remove address",
			zap.String("subscriber_id", subscriberID),
			zap.String("address", address),
			zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "store_error", "Failed to save subscription")
	}
}

// GetStatus handles GET /api/subscribers/{subscriber_id}/status
func (h *SubscriptionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	subscriberID := mux.Vars(r)["subscriber_id"]

	addresses := h.store.Addresses(subscriberID)
	if len(addresses) == 0 {
		h.writeErrorResponse(w, http.StatusNotFound, "no_addresses", "Subscriber has no registered addresses")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, StatusResponse{
		SubscriberID: subscriberID,
		Report:       report.Build(r.Context(), h.client, h.registry, addresses),
	})
}

// writeJSONResponse writes a JSON response with the specified status code
func (h *SubscriptionHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func (h *SubscriptionHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
