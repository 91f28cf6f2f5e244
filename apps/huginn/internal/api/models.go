package api

import "huginn/apps/huginn/internal/report"

// AddAddressRequest represents the request body for registering an address
type AddAddressRequest struct {
	Address string `json:"address"`
}

// AddressesResponse lists a subscriber's watched addresses in registration order
type AddressesResponse struct {
	SubscriberID string   `json:"subscriber_id"`
	Addresses    []string `json:"addresses"`
}

// StatusResponse is the wallet and delegation overview of a subscriber
type StatusResponse struct {
	SubscriberID string `json:"subscriber_id"`
	report.Report
}

type HealthResponse struct {
	Status          string `json:"status"`
	Time            string `json:"time"`
	LastUnbondCycle string `json:"last_unbond_cycle,omitempty"`
	LastJailCycle   string `json:"last_jail_cycle,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
