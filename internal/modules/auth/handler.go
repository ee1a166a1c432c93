package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the auth intents and state over HTTP.
type Handler struct{ machine *StateMachine }

func NewHandler(machine *StateMachine) *Handler { return &Handler{machine: machine} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Get("/state", h.getState)
		r.Post("/login", h.login)
		r.Post("/register", h.register)
		r.Post("/logout", h.logout)
		r.Post("/reset", h.reset)
	})
}

type credentials struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type stateResponse struct {
	State
	LoggedIn bool `json:"logged_in"`
}

func (h *Handler) current() stateResponse {
	return stateResponse{State: h.machine.State().Get(), LoggedIn: h.machine.LoggedIn().Get()}
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.current())
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.machine.Login(req.Email, req.Password)
	respond(w, http.StatusAccepted, h.current())
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.machine.Register(req.Email, req.Password, req.ConfirmPassword)
	respond(w, http.StatusAccepted, h.current())
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.machine.Logout()
	respond(w, http.StatusOK, h.current())
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	h.machine.ResetState()
	respond(w, http.StatusOK, h.current())
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
