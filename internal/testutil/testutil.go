package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"

	jsoniter "github.com/json-iterator/go"

	"librarymanager/internal/lending"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TestUserView is Alice after returning TestBookView with a score of 8.
var TestUserView = lending.UserView{
	ID:   1,
	Name: "Alice",
	Books: lending.UserBooks{
		Present: []lending.PresentBook{},
		Past:    []lending.PastBook{{Name: "Dune", UserScore: 8}},
	},
}

var TestBookView = lending.BookView{ID: 3, Name: "Dune", Score: 8}

// NewRequest creates a new HTTP request for testing. A string body is sent
// as is; anything else is encoded as JSON.
func NewRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	switch b := body.(type) {
	case nil:
	case string:
		bodyBytes = []byte(b)
	default:
		bodyBytes, _ = json.Marshal(b)
	}

	r := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	if bodyBytes != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Raw    string
	Body   map[string]interface{}
}

// RecordHTTPResponse records the HTTP response
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]interface{}
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Raw:    string(bodyBytes),
		Body:   bodyMap,
	}
}

// ErrorCode returns error.code from an error envelope, or "".
func (r RecordResponse) ErrorCode() string {
	return r.errorField("code")
}

// ErrorMessage returns error.message from an error envelope, or "".
func (r RecordResponse) ErrorMessage() string {
	return r.errorField("message")
}

func (r RecordResponse) errorField(key string) string {
	errBody, ok := r.Body["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	v, _ := errBody[key].(string)
	return v
}

// AssertResponseCode checks if the response code matches expected
func AssertResponseCode(t interface {
	Errorf(format string, args ...any)
}, got, want int) {
	if got != want {
		t.Errorf("got status code %d, want %d", got, want)
	}
}
