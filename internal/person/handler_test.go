package person

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestRouter(db Querier, opts ...StoreOption) http.Handler {
	r := chi.NewRouter()
	NewHandler(NewStore(db, opts...), zerolog.Nop()).Routes(r)
	return r
}

func TestHandler(t *testing.T) {
	type call struct {
		method  string
		cypher  string
		params  any
		records []*neo4j.Record
		err     error
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		calls      []call
		wantStatus int
		wantBody   string
	}{
		{
			name:   "given people, then lists them",
			method: http.MethodGet,
			path:   "/person",
			calls: []call{
				{method: "ExecuteRead", cypher: cypherList, params: map[string]any(nil), records: names("Alice", "Bob")},
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"data":[{"name":"Alice"},{"name":"Bob"}]}`,
		},
		{
			name:   "given existing person, then returns it",
			method: http.MethodGet,
			path:   "/person/Alice",
			calls: []call{
				{method: "ExecuteRead", cypher: cypherGet, params: map[string]any{"name": "Alice"}, records: names("Alice")},
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"data":{"name":"Alice"}}`,
		},
		{
			name:   "given unknown person, then returns 404",
			method: http.MethodGet,
			path:   "/person/Zed",
			calls: []call{
				{method: "ExecuteRead", cypher: cypherGet, params: map[string]any{"name": "Zed"}},
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"message":"person not found"}`,
		},
		{
			name:   "given person with friends, then lists friends",
			method: http.MethodGet,
			path:   "/person/Alice/friends",
			calls: []call{
				{method: "ExecuteRead", cypher: cypherFriends, params: map[string]any{"name": "Alice"}, records: names("Bob", "Chad")},
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"data":[{"name":"Bob"},{"name":"Chad"}]}`,
		},
		{
			name:   "given valid body, then creates person",
			method: http.MethodPost,
			path:   "/person",
			body:   `{"name":"Frank"}`,
			calls: []call{
				{method: "ExecuteWrite", cypher: cypherCreate, params: map[string]any{"name": "Frank"}, records: names("Frank")},
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"data":{"name":"Frank"},"message":"person created"}`,
		},
		{
			name:       "given blank name, then returns 400",
			method:     http.MethodPost,
			path:       "/person",
			body:       `{"name":"   "}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"errors":[{"field":"name","message":"must not be blank"}],"message":"validation failed"}`,
		},
		{
			name:       "given missing name, then returns 400",
			method:     http.MethodPost,
			path:       "/person",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"errors":[{"field":"name","message":"must not be blank"}],"message":"validation failed"}`,
		},
		{
			name:   "given two people, then befriends them",
			method: http.MethodPost,
			path:   "/person/Alice/friends",
			body:   `{"name":"Eve"}`,
			calls: []call{
				{method: "ExecuteWrite", cypher: cypherAddFriend, params: map[string]any{"name": "Alice", "friend": "Eve"}, records: names("Eve")},
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"data":{"name":"Eve"},"message":"friendship created"}`,
		},
		{
			name:       "given friend without name, then returns 400",
			method:     http.MethodPost,
			path:       "/person/Alice/friends",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"errors":[{"field":"name","message":"must not be blank"}],"message":"validation failed"}`,
		},
		{
			name:   "given query failure, then returns 500",
			method: http.MethodGet,
			path:   "/person",
			calls: []call{
				{method: "ExecuteRead", cypher: cypherList, params: map[string]any(nil), err: assert.AnError},
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"message":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(mockQuerier)
			for _, c := range tt.calls {
				db.On(c.method, mock.Anything, c.cypher, c.params).Return(c.records, c.err)
			}

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			newTestRouter(db).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			db.AssertExpectations(t)
		})
	}
}

func TestHandler_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "given malformed json on create, then returns 400", path: "/person", body: `{"name":`},
		{name: "given malformed json on befriend, then returns 400", path: "/person/Alice/friends", body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(mockQuerier)
			rec := httptest.NewRecorder()

			newTestRouter(db).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"message":"invalid request body"`)
			db.AssertNotCalled(t, "ExecuteWrite", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_OpenBreaker(t *testing.T) {
	t.Run("given open breaker, then returns 503", func(t *testing.T) {
		db := new(mockQuerier)
		db.On("ExecuteRead", mock.Anything, cypherList, mock.Anything).Return(nil, assert.AnError)

		router := newTestRouter(db, WithBreakerConfig(BreakerConfig{Timeout: time.Minute, ConsecutiveFailures: 1}))

		first := httptest.NewRecorder()
		router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/person", nil))
		assert.Equal(t, http.StatusInternalServerError, first.Code)

		second := httptest.NewRecorder()
		router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/person", nil))
		assert.Equal(t, http.StatusServiceUnavailable, second.Code)
		assert.JSONEq(t, `{"message":"database unavailable"}`, second.Body.String())
	})
}
