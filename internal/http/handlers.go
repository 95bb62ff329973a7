package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/example/graborgan/internal/models"
	"github.com/example/graborgan/internal/tracking"
)

// deliveryFeeCents is the flat courier dispatch fee held when an order is
// created and captured when the delivery ends.
const deliveryFeeCents = 20000

func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	deliveries, err := s.Deliveries.List(r.Context())
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": deliveries})
}

func (s *Server) handleGetDelivery(w http.ResponseWriter, r *http.Request) {
	d, err := s.Deliveries.Get(r.Context(), mux.Vars(r)["orderID"])
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": d})
}

func (s *Server) handleDeleteDelivery(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]
	if err := s.Deliveries.Delete(r.Context(), orderID); err != nil {
		s.upstreamError(w, err)
		return
	}
	// a live tracking session for a deleted delivery is meaningless
	if err := s.Sessions.Remove(orderID); err == nil {
		s.WSReg.Close(orderID)
	}
	if intentID, ok := s.takeHold(orderID); ok {
		if err := s.Billing.ReleaseDeliveryFee(r.Context(), intentID); err != nil {
			s.logger.Warn("delivery fee release failed", "order_id", orderID, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEndDelivery(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]
	var body struct {
		DriverID        string `json:"driverId"`
		PaymentIntentID string `json:"paymentIntentId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Deliveries.End(r.Context(), orderID, body.DriverID); err != nil {
		s.upstreamError(w, err)
		return
	}
	intentID := body.PaymentIntentID
	if intentID == "" {
		intentID, _ = s.takeHold(orderID)
	} else {
		s.takeHold(orderID)
	}
	if intentID != "" {
		if err := s.Billing.CaptureDeliveryFee(r.Context(), intentID); err != nil {
			s.logger.Warn("delivery fee capture failed", "order_id", orderID, "error", err)
		}
	}
	if err := s.Sessions.Remove(orderID); err == nil {
		s.WSReg.Close(orderID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]
	d, err := s.Deliveries.Get(r.Context(), orderID)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	if d.Polyline == "" {
		http.Error(w, "delivery has no route yet", http.StatusConflict)
		return
	}

	sess, err := tracking.NewSession(r.Context(), s.Geo, s.logger, tracking.Config{
		TickPeriod:   s.cfg.TickPeriod,
		BannerWindow: s.cfg.BannerWindow,
	}, d)
	if err != nil {
		http.Error(w, "route setup failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	if s.Kafka != nil {
		sess.SetPublisher(s.Kafka)
	}
	sess.SetRecorder(s.Store)
	sess.Subscribe(s.WSReg)
	sess.Subscribe(s.Notifier)

	if err := s.Sessions.Add(sess); err != nil {
		sess.Dispose()
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	origin, destination := sess.Endpoints()
	if err := s.Store.SaveSession(orderID, d.DriverID, origin, destination); err != nil {
		s.logger.Warn("session save failed", "order_id", orderID, "error", err)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"state": sess.Snapshot(),
		"route": sess.RoutePoints(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(mux.Vars(r)["orderID"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": sess.Snapshot(),
		"route": sess.RoutePoints(),
	})
}

func (s *Server) handleDisposeSession(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]
	if err := s.Sessions.Remove(orderID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.WSReg.Close(orderID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionAction(w http.ResponseWriter, r *http.Request, act func(*tracking.Session)) {
	sess, err := s.Sessions.Get(mux.Vars(r)["orderID"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	act(sess)
	writeJSON(w, http.StatusOK, map[string]any{"state": sess.Snapshot()})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(w, r, func(sess *tracking.Session) { sess.Start() })
}

func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(w, r, func(sess *tracking.Session) { sess.Pause() })
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	s.sessionAction(w, r, func(sess *tracking.Session) { sess.Reset() })
}

func (s *Server) handleListRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := s.Recipients.List(r.Context())
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": recipients})
}

func (s *Server) handleLabReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.Recipients.LabReports(r.Context(), mux.Vars(r)["recipientID"])
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": reports})
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.Matches.MatchesForRecipient(r.Context(), mux.Vars(r)["recipientID"])
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": 200, "data": matches})
}

func (s *Server) handleConfirmMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.Matches.ConfirmMatch(r.Context(), mux.Vars(r)["matchID"]); err != nil {
		s.upstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRequestOrgan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RecipientID string `json:"recipientId"`
		OrganType   string `json:"organType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Matches.RequestOrgan(r.Context(), body.RecipientID, body.OrganType); err != nil {
		s.upstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.OrderID == "" {
		req.OrderID = "order-" + newID()
	}
	if err := s.Matches.CreateOrder(r.Context(), req); err != nil {
		s.upstreamError(w, err)
		return
	}
	resp := map[string]any{"orderId": req.OrderID}
	if intentID, err := s.Billing.HoldDeliveryFee(r.Context(), req.OrderID, deliveryFeeCents, "sgd"); err == nil {
		s.holdsMu.Lock()
		s.holds[req.OrderID] = intentID
		s.holdsMu.Unlock()
		resp["paymentIntentId"] = intentID
	} else {
		s.logger.Warn("delivery fee hold failed", "order_id", req.OrderID, "error", err)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// takeHold removes and returns the pending payment hold for an order.
func (s *Server) takeHold(orderID string) (string, bool) {
	s.holdsMu.Lock()
	defer s.holdsMu.Unlock()
	id, ok := s.holds[orderID]
	if ok {
		delete(s.holds, orderID)
	}
	return id, ok
}

func (s *Server) handleGetDriver(w http.ResponseWriter, r *http.Request) {
	d, err := s.Drivers.Get(r.Context(), mux.Vars(r)["driverID"])
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleStartMonitor(w http.ResponseWriter, r *http.Request) {
	s.Monitor.Start(mux.Vars(r)["driverID"])
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStopMonitor(w http.ResponseWriter, r *http.Request) {
	s.Monitor.Stop(mux.Vars(r)["driverID"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDriverAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.Monitor.Alert(mux.Vars(r)["driverID"])
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"alert": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alert": alert})
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	if err := s.Monitor.Acknowledge(r.Context(), mux.Vars(r)["driverID"]); err != nil {
		s.upstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "lat and lng query params required", http.StatusBadRequest)
		return
	}
	limit := 20
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"couriers": s.Fleet.Nearby(lat, lng, limit)})
}

func (s *Server) upstreamError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadGateway)
}
