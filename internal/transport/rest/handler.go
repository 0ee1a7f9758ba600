// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	producterrors "github.com/abgdnv/productapi/internal/errors"
	"github.com/abgdnv/productapi/internal/service"
	"github.com/abgdnv/productapi/pkg/web"
	"github.com/go-chi/chi/v5"
)

const WelcomeText = "Welcome to the Product API! Go to /api/products to see all products."

type Handler struct {
	service  service.ProductService
	pipeline *Pipeline
	respond  web.ErrorResponder
	logger   *slog.Logger
}

// NewHandler creates a new instance of the product API with the provided service.
func NewHandler(service service.ProductService, pipeline *Pipeline, respond web.ErrorResponder, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		pipeline: pipeline,
		respond:  respond,
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes installs the body, auth and validation stages and the product routes.
// It must be called before any other route is added to r.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Use(h.pipeline.DecodeJSONBody)
	r.Use(h.pipeline.RequireAPIKey)

	r.Get("/", h.Welcome)
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.With(h.pipeline.ValidateProduct).Post("/", h.Create)
		r.Get("/search", h.Search)
		r.Get("/stats", h.Stats)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.With(h.pipeline.ValidateProduct).Put("/", h.Update)
			r.Delete("/", h.DeleteByID)
		})
	})

	r.NotFound(h.NotFound)
}

// Welcome greets API clients.
func (h *Handler) Welcome(w http.ResponseWriter, _ *http.Request) {
	web.RespondText(w, http.StatusOK, WelcomeText)
}

// List returns a page of products, optionally filtered by category.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := web.QueryIntGte(r, "page", service.DefaultPage, 1)
	if err != nil {
		h.respond(w, r, paramError(err))
		return
	}
	limit, err := web.QueryIntGte(r, "limit", service.DefaultLimit, 1)
	if err != nil {
		h.respond(w, r, paramError(err))
		return
	}
	query := service.ListQuery{
		Category: r.URL.Query().Get("category"),
		Page:     page,
		Limit:    limit,
	}
	h.logger.DebugContext(r.Context(), "Received request to list products", "category", query.Category, "page", page, "limit", limit)

	result, err := h.service.List(r.Context(), query)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully listed products", "total", result.Total, "count", len(result.Products))
	web.RespondJSON(w, h.logger, http.StatusOK, result)
}

// Search returns the products whose name contains the q query parameter.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	h.logger.DebugContext(r.Context(), "Received request to search products", "q", q)

	found, err := h.service.Search(r.Context(), q)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// Stats returns the product count per category.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.respond(w, r, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, stats)
}

// FindByID retrieves a product by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.logger.DebugContext(r.Context(), "Received request to find product by ID", "ID", id)

	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved product", "ID", found.ID, "Name", found.Name)
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// Create handles the creation of a new product.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := validatedInput(r)
	if !ok {
		h.respond(w, r, errors.New("create reached without validated input"))
		return
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", created.ID, "Name", created.Name)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// Update merges the request body onto an existing product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	input, ok := validatedInput(r)
	if !ok {
		h.respond(w, r, errors.New("update reached without validated input"))
		return
	}
	h.logger.DebugContext(r.Context(), "Received request to update product", "ID", id)

	updated, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// DeleteByID deletes a product by its ID.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.logger.DebugContext(r.Context(), "Received request to delete product", "ID", id)

	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		h.respond(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	w.WriteHeader(http.StatusNoContent)
}

// NotFound answers requests for unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, producterrors.NotFound(fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path)))
}

// paramError turns a rejected query parameter into a validation error.
func paramError(err error) error {
	var pErr *web.ParamError
	if errors.As(err, &pErr) {
		return producterrors.Validation(pErr.Error(), map[string]string{pErr.Key: "failed on rule: " + pErr.Rule})
	}
	return err
}
