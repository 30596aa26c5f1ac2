package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kooshamoradpour/G5-TechStore/internal/services"
	"github.com/kooshamoradpour/G5-TechStore/types"
	"github.com/rs/zerolog"
)

// CartHandler exposes the caller's cart.
type CartHandler struct {
	cart   *services.CartService
	logger zerolog.Logger
}

func NewCartHandler(cart *services.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{cart: cart, logger: logger}
}

// CartRouter registers cart routes on the given router.
func CartRouter(r chi.Router, cart *services.CartService, logger zerolog.Logger) {
	handler := NewCartHandler(cart, logger)

	r.Get("/", handler.GetCart)
	r.Post("/items", handler.AddItem)
	r.Patch("/items/{productID}", handler.UpdateItem)
	r.Delete("/items/{productID}", handler.RemoveItem)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.cart.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, CartResponse{Items: items})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.cart.Add(r.Context(), req.ProductID, req.Quantity)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.cart.UpdateQuantity(r.Context(), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	user, err := h.cart.Remove(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type AddCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items []types.CartItem `json:"items"`
}
