package v1

import (
	"github.com/stacklok/toolhive-assetsync/internal/service"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status string `json:"status" example:"ready"`
}

// ResourceListResponse is the body of GET /api/v1/resources
type ResourceListResponse struct {
	Resources []*service.ResourceInfo `json:"resources"`
	Count     int                     `json:"count"`
}

// UpdateCheckResponse is the body of GET /api/v1/resources/{locale}/{type}/check
type UpdateCheckResponse struct {
	Locale          string `json:"locale"`
	Type            string `json:"type"`
	UpdateAvailable bool   `json:"updateAvailable"`
	LocalRevision   string `json:"localRevision,omitempty"`
	RemoteRevision  string `json:"remoteRevision"`
}

// FileHashResponse is the body of GET /api/v1/resources/{locale}/{type}/hash/*
type FileHashResponse struct {
	Path   string `json:"path"`
	Digest string `json:"digest" example:"sha256:2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae"`
}

// DirectoryResponse is the body of GET /api/v1/resources/{locale}/{type}/tree/*
type DirectoryResponse struct {
	Path    string   `json:"path"`
	Entries []string `json:"entries"`
}
