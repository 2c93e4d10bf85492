// Package api is the HTTP surface of the canteen core. It resolves bearer
// tokens into principals and translates JSON requests into core operations;
// every business rule, including role checks, lives below it.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/xopoww/canteen/core"
)

type Server struct {
	svc      *core.Service
	log      *logrus.Logger
	sessions *sessionStore
}

func NewServer(svc *core.Service, log *logrus.Logger) *Server {
	return &Server{
		svc:      svc,
		log:      log,
		sessions: newSessionStore(),
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	authed := router.NewRoute().Subrouter()
	authed.Use(s.mustAuth)

	authed.HandleFunc("/menu", s.handleListMenu).Methods(http.MethodGet)
	authed.HandleFunc("/menu", s.handleAddMenuItem).Methods(http.MethodPost)
	authed.HandleFunc("/menu/{id:[0-9]+}", s.handleUpdateMenuItem).Methods(http.MethodPut)

	authed.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)
	authed.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id:[0-9]+}/fulfill", s.handleFulfillOrder).Methods(http.MethodPost)

	authed.HandleFunc("/inventory", s.handleListInventory).Methods(http.MethodGet)
	authed.HandleFunc("/inventory/{product}", s.handleAdjustInventory).Methods(http.MethodPut)

	authed.HandleFunc("/purchases", s.handleCreatePurchaseRequest).Methods(http.MethodPost)
	authed.HandleFunc("/purchases", s.handleListPurchaseRequests).Methods(http.MethodGet)
	authed.HandleFunc("/purchases/{id:[0-9]+}/approve", s.handleApprovePurchaseRequest).Methods(http.MethodPost)
	authed.HandleFunc("/purchases/{id:[0-9]+}/reject", s.handleRejectPurchaseRequest).Methods(http.MethodPost)

	authed.HandleFunc("/reports/daily", s.handleDailyReport).Methods(http.MethodGet)

	authed.HandleFunc("/reviews", s.handleAddReview).Methods(http.MethodPost)
	authed.HandleFunc("/reviews", s.handleListReviews).Methods(http.MethodGet)

	return router
}
