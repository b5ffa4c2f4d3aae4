package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"

	"librarymanager/internal/http/mocks"
	"librarymanager/internal/testutil"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T) (*mocks.MockLendingService, http.Handler) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockLendingService(ctrl)
	router := NewRouter(Handlers{
		Users:  NewUserHandler(svc),
		Books:  NewBookHandler(svc),
		Health: NewHealthHandler(stubPinger{}),
	})
	return svc, router
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) testutil.RecordResponse {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, testutil.NewRequest(method, path, body))
	return testutil.RecordHTTPResponse(w)
}
