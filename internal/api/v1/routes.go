// Package v1 provides the REST API handlers for reading synchronized asset bundles.
package v1

import (
	"bytes"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-assetsync/internal/api/common"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/service"
)

// Routes handles HTTP requests for the resource endpoints.
type Routes struct {
	service service.AssetService
}

// NewRoutes creates a new Routes instance with the given service.
func NewRoutes(svc service.AssetService) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates and configures the HTTP router for the resource endpoints.
func Router(svc service.AssetService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Get("/", routes.listResources)
	r.Route("/{locale}/{type}", func(r chi.Router) {
		r.Get("/", routes.getResource)
		r.Get("/check", routes.checkForUpdate)
		r.Get("/hash/*", routes.fileHash)
		r.Get("/files/*", routes.fileData)
		r.Get("/tree", routes.listDirectory)
		r.Get("/tree/*", routes.listDirectory)
	})

	return r
}

// listResources handles GET /api/v1/resources
//
// Query parameters locale and type narrow the result.
func (routes *Routes) listResources(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	opts := []service.Option[service.ListResourcesOptions]{}
	if locale := query.Get("locale"); locale != "" {
		opts = append(opts, service.WithLocale(locale))
	}
	if typ := query.Get("type"); typ != "" {
		opts = append(opts, service.WithType(typ))
	}

	resources, err := routes.service.ListResources(r.Context(), opts...)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	common.WriteJSONResponse(w, ResourceListResponse{
		Resources: resources,
		Count:     len(resources),
	}, http.StatusOK)
}

// getResource handles GET /api/v1/resources/{locale}/{type}
func (routes *Routes) getResource(w http.ResponseWriter, r *http.Request) {
	key, ok := resourceKey(w, r)
	if !ok {
		return
	}

	info, err := routes.service.GetResource(r.Context(), key)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, info, http.StatusOK)
}

// checkForUpdate handles GET /api/v1/resources/{locale}/{type}/check
func (routes *Routes) checkForUpdate(w http.ResponseWriter, r *http.Request) {
	key, ok := resourceKey(w, r)
	if !ok {
		return
	}

	result, err := routes.service.CheckForUpdate(r.Context(), key)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, UpdateCheckResponse{
		Locale:          key.Locale,
		Type:            key.Type,
		UpdateAvailable: result.IsUpdateAvailable,
		LocalRevision:   result.LocalSHA,
		RemoteRevision:  result.RemoteSHA,
	}, http.StatusOK)
}

// fileHash handles GET /api/v1/resources/{locale}/{type}/hash/*
func (routes *Routes) fileHash(w http.ResponseWriter, r *http.Request) {
	key, p, ok := resourceFile(w, r)
	if !ok {
		return
	}

	dgst, err := routes.service.FileHash(r.Context(), key, p)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, FileHashResponse{Path: p, Digest: dgst.String()}, http.StatusOK)
}

// fileData handles GET /api/v1/resources/{locale}/{type}/files/*
//
// The response supports range requests, so large media can be streamed.
func (routes *Routes) fileData(w http.ResponseWriter, r *http.Request) {
	key, p, ok := resourceFile(w, r)
	if !ok {
		return
	}

	data, err := routes.service.FileData(r.Context(), key, p)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	http.ServeContent(w, r, path.Base(p), time.Time{}, bytes.NewReader(data))
}

// listDirectory handles GET /api/v1/resources/{locale}/{type}/tree/*
func (routes *Routes) listDirectory(w http.ResponseWriter, r *http.Request) {
	key, ok := resourceKey(w, r)
	if !ok {
		return
	}
	p, err := common.AssetPathFromRequest(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	entries, err := routes.service.ListDirectory(r.Context(), key, p)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []string{}
	}
	common.WriteJSONResponse(w, DirectoryResponse{Path: p, Entries: entries}, http.StatusOK)
}

func resourceKey(w http.ResponseWriter, r *http.Request) (naming.ResourceKey, bool) {
	key, err := common.ResourceKeyFromRequest(r)
	if err != nil {
		common.WriteError(w, err)
		return naming.ResourceKey{}, false
	}
	return key, true
}

func resourceFile(w http.ResponseWriter, r *http.Request) (naming.ResourceKey, string, bool) {
	key, ok := resourceKey(w, r)
	if !ok {
		return naming.ResourceKey{}, "", false
	}
	p, err := common.AssetPathFromRequest(r)
	if err != nil {
		common.WriteError(w, err)
		return naming.ResourceKey{}, "", false
	}
	if p == "" {
		common.WriteErrorResponse(w, "File path is required", http.StatusBadRequest)
		return naming.ResourceKey{}, "", false
	}
	return key, p, true
}
