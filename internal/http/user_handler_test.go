package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarymanager/internal/entity"
	"librarymanager/internal/lending"
	"librarymanager/internal/testutil"
)

func TestUserHandler_List(t *testing.T) {
	svc, router := newTestRouter(t)
	svc.EXPECT().ListUsers(gomock.Any()).Return([]lending.UserSummary{{ID: 1, Name: "Alice"}}, nil)

	w := doRequest(t, router, http.MethodGet, "/users", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []lending.UserSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(w.Raw), &body))
	assert.Equal(t, []lending.UserSummary{{ID: 1, Name: "Alice"}}, body.Data)
}

func TestUserHandler_Get(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		mockErr        error
		expectCall     bool
		expectedStatus int
		expectedCode   string
	}{
		{name: "found", path: "/users/1", expectCall: true, expectedStatus: http.StatusOK},
		{name: "not found", path: "/users/7", expectCall: true, mockErr: lending.NotFound(lending.EntityUser, 7), expectedStatus: http.StatusNotFound, expectedCode: "NOT_FOUND"},
		{name: "negative id", path: "/users/-1", expectedStatus: http.StatusBadRequest, expectedCode: "BAD_REQUEST"},
		{name: "fractional id", path: "/users/1.5", expectedStatus: http.StatusBadRequest, expectedCode: "BAD_REQUEST"},
		{name: "word id", path: "/users/abc", expectedStatus: http.StatusBadRequest, expectedCode: "BAD_REQUEST"},
		{name: "store failure", path: "/users/2", expectCall: true, mockErr: errors.New("connection reset"), expectedStatus: http.StatusInternalServerError, expectedCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router := newTestRouter(t)
			if tt.expectCall {
				svc.EXPECT().GetUser(gomock.Any(), gomock.Any()).Return(testutil.TestUserView, tt.mockErr)
			}

			w := doRequest(t, router, http.MethodGet, tt.path, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, w.ErrorCode())
			}
		})
	}
}

func TestUserHandler_Get_Body(t *testing.T) {
	svc, router := newTestRouter(t)
	svc.EXPECT().GetUser(gomock.Any(), int64(1)).Return(testutil.TestUserView, nil)

	w := doRequest(t, router, http.MethodGet, "/users/1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":1,"name":"Alice","books":{"present":[],"past":[{"name":"Dune","userScore":8}]}}}`, w.Raw)
}

func TestUserHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectCall     bool
		expectedStatus int
	}{
		{name: "success", body: map[string]string{"name": "Alice"}, expectCall: true, expectedStatus: http.StatusCreated},
		{name: "invalid JSON", body: "invalid json", expectedStatus: http.StatusBadRequest},
		{name: "empty body", body: nil, expectedStatus: http.StatusBadRequest},
		{name: "missing name", body: map[string]string{}, expectedStatus: http.StatusBadRequest},
		{name: "blank name", body: map[string]string{"name": "  "}, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router := newTestRouter(t)
			if tt.expectCall {
				svc.EXPECT().CreateUser(gomock.Any(), "Alice").Return(lending.UserSummary{ID: 3, Name: "Alice"}, nil)
			}

			w := doRequest(t, router, http.MethodPost, "/users", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestUserHandler_Borrow(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		mockErr        error
		expectCall     bool
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{name: "success", path: "/users/1/borrow/2", expectCall: true, expectedStatus: http.StatusNoContent},
		{
			name: "held by another user", path: "/users/1/borrow/2", expectCall: true,
			mockErr:        lending.AlreadyBorrowed(2, false),
			expectedStatus: http.StatusBadRequest, expectedCode: "ALREADY_BORROWED",
			expectedMsg: "Book#2 is already borrowed by another user!",
		},
		{
			name: "missing user", path: "/users/9/borrow/2", expectCall: true,
			mockErr:        lending.NotFound(lending.EntityUser, 9),
			expectedStatus: http.StatusBadRequest, expectedCode: "NOT_FOUND",
			expectedMsg: "User#9 not found!",
		},
		{name: "bad book id", path: "/users/1/borrow/zero", expectedStatus: http.StatusBadRequest, expectedCode: "BAD_REQUEST"},
		{name: "zero user id", path: "/users/0/borrow/2", expectedStatus: http.StatusBadRequest, expectedCode: "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router := newTestRouter(t)
			if tt.expectCall {
				svc.EXPECT().BorrowBook(gomock.Any(), gomock.Any(), int64(2)).Return(entity.User{}, tt.mockErr)
			}

			w := doRequest(t, router, http.MethodPost, tt.path, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, w.ErrorCode())
				if tt.expectedMsg != "" {
					assert.Equal(t, tt.expectedMsg, w.ErrorMessage())
				}
			}
		})
	}
}

func TestUserHandler_Return(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		mockErr        error
		expectCall     bool
		expectedStatus int
		expectedCode   string
	}{
		{name: "success", body: map[string]float64{"score": 8}, expectCall: true, expectedStatus: http.StatusNoContent},
		{name: "missing score", body: map[string]string{}, expectedStatus: http.StatusBadRequest, expectedCode: "VALIDATION_ERROR"},
		{name: "score not a number", body: map[string]string{"score": "high"}, expectedStatus: http.StatusBadRequest, expectedCode: "BAD_REQUEST"},
		{
			name: "score out of range", body: map[string]float64{"score": 8}, expectCall: true,
			mockErr:        lending.InvalidScore(8),
			expectedStatus: http.StatusBadRequest, expectedCode: "INVALID_SCORE",
		},
		{
			name: "not held", body: map[string]float64{"score": 8}, expectCall: true,
			mockErr:        lending.NotBorrowedByUser(2, 1),
			expectedStatus: http.StatusBadRequest, expectedCode: "NOT_BORROWED_BY_USER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router := newTestRouter(t)
			if tt.expectCall {
				svc.EXPECT().ReturnBook(gomock.Any(), int64(1), int64(2), 8.0).Return(entity.User{}, tt.mockErr)
			}

			w := doRequest(t, router, http.MethodPost, "/users/1/return/2", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, w.ErrorCode())
			}
		})
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	_, router := newTestRouter(t)

	w := doRequest(t, router, http.MethodDelete, "/users/1", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
