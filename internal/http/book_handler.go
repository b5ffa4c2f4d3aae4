package http

import (
	"net/http"

	"librarymanager/internal/httpx"
)

type BookHandler struct {
	service LendingService
}

func NewBookHandler(service LendingService) *BookHandler {
	return &BookHandler{service: service}
}

// @Summary List books
// @Description Every book with its stored aggregate score
// @Tags books
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /books [get]
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		writeServiceError(w, r, err, http.StatusNotFound)
		return
	}
	httpx.JSONSuccess(w, r, books)
}

// @Summary Get book
// @Description Score is recomputed from the full history, -1 when never scored
// @Tags books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [get]
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, http.StatusNotFound)
		return
	}
	httpx.JSONSuccess(w, r, book)
}

// @Summary Create book
// @Tags books
// @Accept json
// @Produce json
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	book, err := h.service.CreateBook(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, r, err, http.StatusNotFound)
		return
	}
	httpx.JSONCreated(w, r, book)
}
