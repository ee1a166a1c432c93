package product

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the product intents, the collection and its live stream.
type Handler struct{ machine *StateMachine }

func NewHandler(machine *StateMachine) *Handler { return &Handler{machine: machine} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
		r.Get("/state", h.getState)
		r.Post("/state/reset", h.resetState)
		r.Post("/resubscribe", h.resubscribe)
		r.Get("/stream", h.stream)
	})
}

// ProductForm carries committed form values. Numbers stay strings so the
// lenient parsing rules apply.
type ProductForm struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Stock    string `json:"stock"`
	Category string `json:"category"`
}

type stateResponse struct {
	Operation    OperationState    `json:"operation"`
	Subscription SubscriptionState `json:"subscription"`
}

func (h *Handler) state() stateResponse {
	return stateResponse{
		Operation:    h.machine.Operation().Get(),
		Subscription: h.machine.Subscription().Get(),
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.machine.Products().Get())
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.state())
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var form ProductForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.machine.CreateProduct(form.Name, form.Price, form.Stock, form.Category)
	respond(w, http.StatusAccepted, h.state())
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var form ProductForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	h.machine.UpdateProduct(id, form.Name, form.Price, form.Stock, form.Category)
	respond(w, http.StatusAccepted, h.state())
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	h.machine.DeleteProduct(chi.URLParam(r, "id"))
	respond(w, http.StatusAccepted, h.state())
}

func (h *Handler) resetState(w http.ResponseWriter, r *http.Request) {
	h.machine.ResetState()
	respond(w, http.StatusOK, h.state())
}

func (h *Handler) resubscribe(w http.ResponseWriter, r *http.Request) {
	h.machine.Resubscribe()
	respond(w, http.StatusAccepted, h.state())
}

// stream writes every collection replacement as a server-sent event until
// the client goes away or the machine closes.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}
	lists, cancel := h.machine.Products().Watch()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case list, ok := <-lists:
			if !ok {
				return
			}
			payload, err := json.Marshal(list)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: products\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
