package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/itemstack/backend/internal/database"
	"github.com/itemstack/backend/pkg/log"
)

const (
	maxItemBodyBytes = 1 << 20
	maxItemNameLen   = 255
)

// ItemHandler serves the items CRUD API.
type ItemHandler struct {
	repo   database.ItemRepository
	logger zerolog.Logger
}

// NewItemHandler creates a new item handler.
func NewItemHandler(repo database.ItemRepository, logger zerolog.Logger) *ItemHandler {
	return &ItemHandler{
		repo:   repo,
		logger: logger.With().Str("component", "item_handler").Logger(),
	}
}

// RegisterRoutes registers the item routes on the given mux.
func (h *ItemHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/items", h.list)
	mux.HandleFunc("POST /api/v1/items", h.create)
	mux.HandleFunc("GET /api/v1/items/{id}", h.get)
	mux.HandleFunc("PUT /api/v1/items/{id}", h.update)
	mux.HandleFunc("DELETE /api/v1/items/{id}", h.delete)
}

// itemRequest is the accepted body for create and update.
type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (req *itemRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return errors.New("name is required")
	}
	if len(req.Name) > maxItemNameLen {
		return errors.New("name must be at most 255 characters")
	}
	return nil
}

func (h *ItemHandler) list(w http.ResponseWriter, r *http.Request) {
	page := database.DefaultPagination()
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		page.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		page.Offset = n
	}
	page = page.Normalize()

	items, err := h.repo.List(r.Context(), page)
	if err != nil {
		h.internalError(w, r, err, "failed to list items")
		return
	}
	if items == nil {
		items = []database.Item{}
	}

	total, err := h.repo.Count(r.Context())
	if err != nil {
		h.internalError(w, r, err, "failed to count items")
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))

	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	item := &database.Item{Name: req.Name, Description: req.Description}
	if err := h.repo.Create(r.Context(), item); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			writeError(w, http.StatusConflict, "item already exists")
			return
		}
		h.internalError(w, r, err, "failed to create item")
		return
	}

	w.Header().Set("Location", "/api/v1/items/"+strconv.FormatInt(item.ID, 10))
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	item, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if database.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.internalError(w, r, err, "failed to get item")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	item := &database.Item{ID: id, Name: req.Name, Description: req.Description}
	if err := h.repo.Update(r.Context(), item); err != nil {
		if database.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.internalError(w, r, err, "failed to update item")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if database.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.internalError(w, r, err, "failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) decode(w http.ResponseWriter, r *http.Request) (itemRequest, bool) {
	var req itemRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxItemBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func (h *ItemHandler) internalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	logger := log.WithContext(r.Context(), h.logger)
	logger.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func parseItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
}
