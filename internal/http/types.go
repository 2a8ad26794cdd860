package http

import "github.com/fyrsmithlabs/multistore/internal/store"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Stores    int    `json:"stores"`
	Inspector string `json:"inspector,omitempty"`
}

// StoreListResponse is the response body for GET /api/v1/stores.
type StoreListResponse struct {
	Stores    []string `json:"stores"`
	Inspector string   `json:"inspector,omitempty"`
}

// RegisterStoreRequest is the request body for POST /api/v1/stores.
type RegisterStoreRequest struct {
	Name    string                 `json:"name"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// AddDocumentsRequest is the request body for
// POST /api/v1/stores/:name/documents.
type AddDocumentsRequest struct {
	Collection string           `json:"collection,omitempty"`
	Documents  []store.Document `json:"documents"`
}

// AddDocumentsResponse lists the stored document IDs in request order.
type AddDocumentsResponse struct {
	IDs []string `json:"ids"`
}

// QueryRequest is the request body for POST /api/v1/stores/:name/query.
type QueryRequest struct {
	Collection string `json:"collection,omitempty"`
	store.Query
}

// QueryResponse is the response body for POST /api/v1/stores/:name/query.
type QueryResponse struct {
	Results []store.Result `json:"results"`
}

// SwitchInspectorRequest is the request body for PUT /api/v1/inspector.
// An empty name selects the default store.
type SwitchInspectorRequest struct {
	Name string `json:"name"`
}
