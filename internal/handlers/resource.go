package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mockly/apiserver/internal/services"
	"github.com/mockly/apiserver/types"
)

const resourceSubject = "Resource"

// ResourceHandler provides HTTP handlers for learning resources.
type ResourceHandler struct {
	resourceService *services.ResourceService
}

func NewResourceHandler(resourceService *services.ResourceService) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService}
}

// ResourceRouter registers resource routes on the given router.
func ResourceRouter(r chi.Router, resourceService *services.ResourceService, auth *AuthHandler) {
	handler := NewResourceHandler(resourceService)

	r.With(auth.OptionalAuth).Get("/", handler.ListResources)
	r.Get("/questions", handler.ListQuestions)
	r.Get("/blogs", handler.ListBlogs)
	r.With(auth.RequireAuth, RequireAdmin).Get("/stats/overview", handler.Overview)
	r.With(auth.RequireAuth, RequireAdmin).Post("/", handler.CreateResource)
	r.Route("/{resourceID}", func(r chi.Router) {
		r.With(auth.OptionalAuth).Get("/", handler.GetResource)
		r.With(auth.RequireAuth, RequireAdmin).Put("/", handler.UpdateResource)
		r.With(auth.RequireAuth, RequireAdmin).Delete("/", handler.DeleteResource)
		r.With(auth.RequireAuth).Post("/like", handler.LikeResource)
	})
}

// ResourceResponse acknowledges a mutation and carries the resource.
type ResourceResponse struct {
	Message  string         `json:"message"`
	Resource types.Resource `json:"resource"`
}

// LikeResponse carries the like counter after a like.
type LikeResponse struct {
	Message string `json:"message"`
	Likes   int    `json:"likes"`
}

func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, authenticated := AccountFromContext(r.Context())
	query := r.URL.Query()
	list, err := h.resourceService.List(r.Context(), services.ResourceListQuery{
		Category:   query.Get("category"),
		Type:       query.Get("type"),
		Difficulty: query.Get("difficulty"),
		Search:     query.Get("search"),
		SortBy:     query.Get("sortBy"),
		Order:      query.Get("order"),
		Page:       page,
		Limit:      limit,
	}, authenticated)
	if err != nil {
		writeServiceError(w, err, resourceSubject)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ResourceHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	list, err := h.resourceService.Questions(r.Context(), services.QuestionQuery{
		Category:   query.Get("category"),
		Difficulty: query.Get("difficulty"),
		Random:     strings.EqualFold(strings.TrimSpace(query.Get("random")), "true"),
		Limit:      limit,
	})
	if err != nil {
		writeServiceError(w, err, resourceSubject)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ResourceHandler) ListBlogs(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.resourceService.Blogs(r.Context(), r.URL.Query().Get("category"), page, limit)
	if err != nil {
		writeServiceError(w, err, resourceSubject)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	_, authenticated := AccountFromContext(r.Context())
	resource, err := h.resourceService.Open(r.Context(), chi.URLParam(r, "resourceID"), authenticated)
	if err != nil {
		writeServiceError(w, err, resourceSubject)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

func (h *ResourceHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	creatorID, err := userIDFromContext(r.Context())
	if err != nil {
		writeServiceError(w, services.ErrUnauthenticated, "User")
		return
	}

	var req services.ResourceInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resource, err := h.resourceService.Create(r.Context(), creatorID, req)
	if err != nil {
		writeServiceError(w, err, resourceSubject)
		return
	}
	writeJSON(w, http.StatusCreated, ResourceResponse{Message: "Resource created successfully", Resource: resource})
}

func (h *ResourceHandler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	var req services.ResourceInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resource, err := h.resourceService.Update(r.Context(), chi.URLParam(r, "resourceID"), req)
	if err != nil {
		writeServiceError(w, err, resourceSubject)
		return
	}
	writeJSON(w, http.StatusOK, ResourceResponse{Message: "Resource updated successfully", Resource: resource})
}

func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.resourceService.Delete(r.Context(), chi.URLParam(r, "resourceID")); err != nil {
		writeServiceError(w, err, resourceSubject)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Resource deleted successfully"})
}

func (h *ResourceHandler) LikeResource(w http.ResponseWriter, r *http.Request) {
	likes, err := h.resourceService.Like(r.Context(), chi.URLParam(r, "resourceID"))
	if err != nil {
		writeServiceError(w, err, resourceSubject)
		return
	}
	writeJSON(w, http.StatusOK, LikeResponse{Message: "Resource liked", Likes: likes})
}

func (h *ResourceHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.resourceService.Overview(r.Context())
	if err != nil {
		writeServiceError(w, err, resourceSubject)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
