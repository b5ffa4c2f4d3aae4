package http

import (
	"net/http"

	"librarymanager/internal/httpx"
)

type UserHandler struct {
	service LendingService
}

func NewUserHandler(service LendingService) *UserHandler {
	return &UserHandler{service: service}
}

// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, http.StatusNotFound)
		return
	}
	httpx.JSONSuccess(w, r, users)
}

// @Summary Get user
// @Description Get a user with present and past borrowed books
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, http.StatusNotFound)
		return
	}
	httpx.JSONSuccess(w, r, user)
}

// @Summary Create user
// @Tags users
// @Accept json
// @Produce json
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /users [post]
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, r, err, http.StatusNotFound)
		return
	}
	httpx.JSONCreated(w, r, user)
}

// @Summary Borrow a book
// @Tags lending
// @Param userId path int true "User ID"
// @Param bookId path int true "Book ID"
// @Success 204
// @Failure 400 {object} httpx.ErrorResponse
// @Router /users/{userId}/borrow/{bookId} [post]
func (h *UserHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	bookID, ok := pathID(w, r, "bookId")
	if !ok {
		return
	}

	if _, err := h.service.BorrowBook(r.Context(), userID, bookID); err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	httpx.JSONNoContent(w)
}

// @Summary Return a book
// @Tags lending
// @Accept json
// @Param userId path int true "User ID"
// @Param bookId path int true "Book ID"
// @Success 204
// @Failure 400 {object} httpx.ErrorResponse
// @Router /users/{userId}/return/{bookId} [post]
func (h *UserHandler) Return(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	bookID, ok := pathID(w, r, "bookId")
	if !ok {
		return
	}

	var req returnBookRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := h.service.ReturnBook(r.Context(), userID, bookID, *req.Score); err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	httpx.JSONNoContent(w)
}
