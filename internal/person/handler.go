package person

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/kroma-labs/sentinel-neo4j/internal/server"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the person routes.
type Handler struct {
	store  *Store
	logger zerolog.Logger
}

// NewHandler creates a Handler over store.
func NewHandler(store *Store, logger zerolog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Routes mounts the person routes on r:
//
//	GET  /person
//	GET  /person/{name}
//	GET  /person/{name}/friends
//	POST /person
//	POST /person/{name}/friends
func (h *Handler) Routes(r chi.Router) {
	r.Route("/person", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{name}", h.get)
		r.Get("/{name}/friends", h.friends)
		r.Post("/{name}/friends", h.addFriend)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	people, err := h.store.List(r.Context())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	server.WriteSuccess(w, http.StatusOK, people, "")
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	server.WriteSuccess(w, http.StatusOK, p, "")
}

func (h *Handler) friends(w http.ResponseWriter, r *http.Request) {
	people, err := h.store.Friends(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	server.WriteSuccess(w, http.StatusOK, people, "")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	body, ok := decodePerson(w, r)
	if !ok {
		return
	}

	p, err := h.store.Create(r.Context(), body.Name)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	server.WriteSuccess(w, http.StatusCreated, p, "person created")
}

func (h *Handler) addFriend(w http.ResponseWriter, r *http.Request) {
	body, ok := decodePerson(w, r)
	if !ok {
		return
	}

	friend, err := h.store.AddFriend(r.Context(), chi.URLParam(r, "name"), body.Name)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	server.WriteSuccess(w, http.StatusCreated, friend, "friendship created")
}

// decodePerson reads a {"name": ...} body. On failure it has already
// written the 400 response.
func decodePerson(w http.ResponseWriter, r *http.Request) (Person, bool) {
	var p Person
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		server.WriteError(w, http.StatusBadRequest, "invalid request body",
			server.Error{Field: "body", Message: err.Error()})
		return Person{}, false
	}
	return p, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidName):
		server.WriteError(w, http.StatusBadRequest, "validation failed",
			server.Error{Field: "name", Message: "must not be blank"})
	case errors.Is(err, ErrSelfFriendship):
		server.WriteError(w, http.StatusBadRequest, "validation failed",
			server.Error{Field: "name", Message: "must differ from the person"})
	case errors.Is(err, ErrNotFound):
		server.WriteError(w, http.StatusNotFound, "person not found")
	case errors.Is(err, ErrUnavailable):
		server.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
	default:
		h.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", server.RequestIDFromContext(r.Context())).
			Msg("person query failed")
		server.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
