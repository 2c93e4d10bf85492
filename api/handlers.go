package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/xopoww/canteen/database"
	"github.com/xopoww/canteen/types"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// 	Map a core failure onto an HTTP status.
// Every taxonomy member gets its own category; anything unrecognized is a
// server fault and gets logged.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, types.ErrInsufficientStock),
		errors.Is(err, types.ErrAlreadyFulfilled),
		errors.Is(err, types.ErrAlreadyDecided),
		errors.Is(err, types.ErrItemUnavailable):
		status = http.StatusConflict
	case errors.Is(err, types.ErrAllergenConflict), errors.Is(err, database.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, types.ErrTransient):
		status = http.StatusServiceUnavailable
	default:
		s.log.Errorf("Internal error: %s", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[name])
}

// ======== Menu ========

func (s *Server) handleListMenu(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	items, err := s.svc.ListMenu(p, types.MealType(r.URL.Query().Get("meal_type")), r.URL.Query().Get("day"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddMenuItem(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	var item types.MenuItem
	if !decodeBody(w, r, &item) {
		return
	}
	created, err := s.svc.AddMenuItem(p, &item)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad item id")
		return
	}
	var item types.MenuItem
	if !decodeBody(w, r, &item) {
		return
	}
	item.ID = id
	updated, err := s.svc.UpdateMenuItem(p, &item)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ======== Orders ========

type placeOrderRequest struct {
	ItemID    int    `json:"item_id"`
	OrderDate string `json:"order_date"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	order, err := s.svc.PlaceOrder(p, req.ItemID, req.OrderDate)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	accountID := p.AccountID
	if v := r.URL.Query().Get("account_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad account_id")
			return
		}
		accountID = id
	}
	orders, err := s.svc.ListOrders(p, accountID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleFulfillOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad order id")
		return
	}
	order, err := s.svc.FulfillOrder(p, id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ======== Inventory ========

func (s *Server) handleListInventory(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	items, err := s.svc.ListInventory(p)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type adjustInventoryRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

func (s *Server) handleAdjustInventory(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	var req adjustInventoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := s.svc.AdjustInventory(p, mux.Vars(r)["product"], req.Quantity, req.Unit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ======== Procurement ========

type purchaseRequestBody struct {
	Product  string          `json:"product"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

func (s *Server) handleCreatePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	var req purchaseRequestBody
	if !decodeBody(w, r, &req) {
		return
	}
	created, err := s.svc.CreatePurchaseRequest(p, req.Product, req.Quantity, req.Unit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListPurchaseRequests(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	reqs, err := s.svc.ListPurchaseRequests(p, types.RequestStatus(r.URL.Query().Get("status")))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) handleApprovePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	s.handleDecidePurchaseRequest(w, r, true)
}

func (s *Server) handleRejectPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	s.handleDecidePurchaseRequest(w, r, false)
}

func (s *Server) handleDecidePurchaseRequest(w http.ResponseWriter, r *http.Request, approve bool) {
	p, _ := principalFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad request id")
		return
	}
	var req *types.PurchaseRequest
	if approve {
		req, err = s.svc.ApprovePurchaseRequest(p, id)
	} else {
		req, err = s.svc.RejectPurchaseRequest(p, id)
	}
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ======== Reports ========

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "missing parameter: date")
		return
	}
	report, err := s.svc.DailyReport(p, date)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ======== Reviews ========

type reviewRequest struct {
	ItemID  int    `json:"item_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	review, err := s.svc.AddReview(p, req.ItemID, req.Rating, req.Comment)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r)
	itemID := 0
	if v := r.URL.Query().Get("item_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad item_id")
			return
		}
		itemID = id
	}
	reviews, err := s.svc.ListReviews(p, itemID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
