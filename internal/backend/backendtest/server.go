// Package backendtest provides an in-memory comanda API for tests.
package backendtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/five82/pase/internal/backend"
	"github.com/five82/pase/internal/comanda"
)

// Call records one request received by the server.
type Call struct {
	Method string
	Path   string
	Body   []byte
}

type failure struct {
	status int
	body   string
}

// Server is an httptest server backed by a map of orders. The day segment of
// list routes is recorded but not used for filtering.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	orders   map[string]backend.OrderPayload
	calls    []Call
	failures map[string][]failure
}

// New starts a server and registers its shutdown with t.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		orders:   make(map[string]backend.OrderPayload),
		failures: make(map[string][]failure),
	}
	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api/comanda", func(r chi.Router) {
		r.Get("/fechastatus/{day}", s.listBoard)
		r.Get("/fecha/{day}", s.listDay)
		r.Put("/{id}/status", s.putStatus)
		r.Put("/{id}/plato/{platoID}/estado", s.putDishState)
		r.Put("/{id}", s.putOrder)
		r.Delete("/{id}", s.deleteOrder)
	})
	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the API url, including the /api/comanda suffix.
func (s *Server) URL() string {
	return s.srv.URL + "/api/comanda"
}

// Put stores orders as if they had been created by a waiter.
func (s *Server) Put(orders ...comanda.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		s.orders[o.ID] = backend.EncodeOrder(o)
	}
}

// Order returns the stored order.
func (s *Server) Order(id string) (comanda.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.orders[id]
	if !ok {
		return comanda.Order{}, false
	}
	return backend.NormalizeOrder(p), true
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the requests received for method and path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// FailNext makes the next request to method and path answer with status and
// body instead of being handled.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Body: body})
		key := r.Method + " " + r.URL.Path
		var fail *failure
		if queued := s.failures[key]; len(queued) > 0 {
			f := queued[0]
			fail = &f
			s.failures[key] = queued[1:]
		}
		s.mu.Unlock()

		if fail != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = io.WriteString(w, fail.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listBoard(w http.ResponseWriter, _ *http.Request) {
	s.list(w, func(o comanda.Order) bool {
		return o.IsActive() && o.Status == comanda.OrderWaiting
	})
}

func (s *Server) listDay(w http.ResponseWriter, _ *http.Request) {
	s.list(w, func(o comanda.Order) bool { return o.IsActive() })
}

func (s *Server) list(w http.ResponseWriter, keep func(comanda.Order) bool) {
	s.mu.Lock()
	out := make([]backend.OrderPayload, 0, len(s.orders))
	for _, p := range s.orders {
		if keep(backend.NormalizeOrder(p)) {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) putStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"nuevoStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	status, ok := comanda.ParseOrderStatus(body.Status)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "estado invalido"})
		return
	}
	s.mutate(w, chi.URLParam(r, "id"), func(o *comanda.Order) (int, string) {
		if o.Status == status {
			return http.StatusConflict, "ALREADY_IN_STATE"
		}
		o.Status = status
		return http.StatusOK, ""
	})
}

func (s *Server) putDishState(w http.ResponseWriter, r *http.Request) {
	var body struct {
		State string `json:"nuevoEstado"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	state, ok := comanda.ParseDishState(body.State)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "estado invalido"})
		return
	}
	platoID := chi.URLParam(r, "platoID")
	s.mutate(w, chi.URLParam(r, "id"), func(o *comanda.Order) (int, string) {
		found := false
		for i := range o.Dishes {
			d := &o.Dishes[i]
			if d.MenuItem.ID != platoID || d.Removed {
				continue
			}
			found = true
			if d.State == state {
				continue
			}
			d.State = state
			if d.StateChangedAt == nil {
				d.StateChangedAt = make(map[comanda.DishState]time.Time)
			}
			d.StateChangedAt[state] = time.Now().UTC()
			return http.StatusOK, ""
		}
		if !found {
			return http.StatusNotFound, "plato no encontrado"
		}
		return http.StatusConflict, "ALREADY_IN_STATE"
	})
}

func (s *Server) putOrder(w http.ResponseWriter, r *http.Request) {
	var p backend.OrderPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	s.mutate(w, chi.URLParam(r, "id"), func(o *comanda.Order) (int, string) {
		next := backend.NormalizeOrder(p)
		next.ID = o.ID
		*o = next
		return http.StatusOK, ""
	})
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, chi.URLParam(r, "id"), func(o *comanda.Order) (int, string) {
		inactive := false
		o.Active = &inactive
		return http.StatusOK, ""
	})
}

// mutate applies fn to the stored order and writes the resulting order or an
// error envelope.
func (s *Server) mutate(w http.ResponseWriter, id string, fn func(*comanda.Order) (int, string)) {
	s.mu.Lock()
	p, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "comanda no encontrada"})
		return
	}
	o := backend.NormalizeOrder(p)
	status, code := fn(&o)
	if status >= 400 {
		s.mu.Unlock()
		writeJSON(w, status, map[string]string{"code": code, "message": code})
		return
	}
	o.UpdatedAt = time.Now().UTC()
	encoded := backend.EncodeOrder(o)
	s.orders[id] = encoded
	s.mu.Unlock()
	writeJSON(w, status, encoded)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
