package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ride-coord/internal/domain/ride"
	"ride-coord/internal/general/jwt"
	"ride-coord/internal/ports"
)

// ----- Handler: POST /rides -----

func (handler *CoordinatorHTTPHandler) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	var req struct {
		PickupLatitude       float64 `json:"pickup_latitude"`
		PickupLongitude      float64 `json:"pickup_longitude"`
		PickupAddress        string  `json:"pickup_address"`
		DestinationLatitude  float64 `json:"destination_latitude"`
		DestinationLongitude float64 `json:"destination_longitude"`
		DestinationAddress   string  `json:"destination_address"`
		PriceCents           int64   `json:"price_cents"`
		ServiceType          string  `json:"service_type"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	serviceType, err := ride.ParseServiceType(req.ServiceType)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CreateRide(ctxWithTimeout, ports.CreateRideInput{
		PassengerID:          claims.Subject,
		PickupLatitude:       req.PickupLatitude,
		PickupLongitude:      req.PickupLongitude,
		PickupAddress:        req.PickupAddress,
		DestinationLatitude:  req.DestinationLatitude,
		DestinationLongitude: req.DestinationLongitude,
		DestinationAddress:   req.DestinationAddress,
		PriceCents:           req.PriceCents,
		ServiceType:          serviceType,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}

// ----- Handler: POST /rides/{ride_id}/accept -----

func (handler *CoordinatorHTTPHandler) handleAcceptRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	rideID, claims, ok := handler.rideAndClaims(ctx, w, r)
	if !ok {
		return
	}

	token := strings.TrimSpace(r.Header.Get(sessionTokenHeader))
	if token == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing "+sessionTokenHeader+" header", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.AcceptRide(ctxWithTimeout, ports.AcceptRideInput{
		RideID:       rideID,
		DriverID:     claims.Subject,
		SessionToken: token,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /rides/{ride_id}/start -----

func (handler *CoordinatorHTTPHandler) handleStartRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	rideID, claims, ok := handler.rideAndClaims(ctx, w, r)
	if !ok {
		return
	}

	token := strings.TrimSpace(r.Header.Get(sessionTokenHeader))
	if token == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing "+sessionTokenHeader+" header", nil)
		return
	}

	var req struct {
		SecurityCode string `json:"security_code"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.StartRide(ctxWithTimeout, ports.StartRideInput{
		RideID:       rideID,
		DriverID:     claims.Subject,
		SessionToken: token,
		SecurityCode: req.SecurityCode,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /rides/{ride_id}/complete -----

func (handler *CoordinatorHTTPHandler) handleCompleteRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	rideID, claims, ok := handler.rideAndClaims(ctx, w, r)
	if !ok {
		return
	}

	token := strings.TrimSpace(r.Header.Get(sessionTokenHeader))
	if token == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing "+sessionTokenHeader+" header", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CompleteRide(ctxWithTimeout, ports.CompleteRideInput{
		RideID:       rideID,
		DriverID:     claims.Subject,
		SessionToken: token,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /rides/{ride_id}/cancel -----

func (handler *CoordinatorHTTPHandler) handleCancelRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	rideID, claims, ok := handler.rideAndClaims(ctx, w, r)
	if !ok {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CancelRide(ctxWithTimeout, ports.CancelRideInput{
		RideID:  rideID,
		ActorID: claims.Subject,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: GET /rides/{ride_id}/messages -----

func (handler *CoordinatorHTTPHandler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	rideID, _, ok := handler.rideAndClaims(ctx, w, r)
	if !ok {
		return
	}

	msgs, err := handler.svc.Transcript(ctx, rideID)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	type wireMsg struct {
		MessageID string    `json:"message_id"`
		SenderID  string    `json:"sender_id"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := struct {
		RideID   string    `json:"ride_id"`
		Messages []wireMsg `json:"messages"`
	}{RideID: rideID, Messages: make([]wireMsg, 0, len(msgs))}

	for _, m := range msgs {
		out.Messages = append(out.Messages, wireMsg{
			MessageID: m.ID,
			SenderID:  m.SenderID,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}

	handler.jsonResponse(ctx, w, http.StatusOK, out)
}

// ----- Handler: GET /rides/history -----

func (handler *CoordinatorHTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			handler.httpError(ctx, w, http.StatusBadRequest, "invalid 'limit' parameter", err)
			return
		}
		limit = n
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.History(ctxWithTimeout, claims.Subject, limit)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// rideAndClaims extracts the path ride_id and the request claims.
func (handler *CoordinatorHTTPHandler) rideAndClaims(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, *jwt.Claims, bool) {
	rideID := strings.TrimSpace(r.PathValue("ride_id"))
	if rideID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing ride_id in path", nil)
		return "", nil, false
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return "", nil, false
	}

	return rideID, claims, true
}
