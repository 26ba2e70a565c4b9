package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ride-coord/internal/general/jwt"
	"ride-coord/internal/ports"
)

const sessionTokenHeader = "X-Session-Token"

// ----- Handler: POST /drivers -----

func (handler *CoordinatorHTTPHandler) handleRegisterDriver(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req struct {
		DriverID string `json:"driver_id"`
		Name     string `json:"name"`
		Approved bool   `json:"approved"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := handler.svc.RegisterDriver(ctx, ports.RegisterDriverInput{
		DriverID: req.DriverID,
		Name:     req.Name,
		Approved: req.Approved,
	})
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusCreated, res)
}

// ----- Handler: POST /drivers/{driver_id}/online -----

func (handler *CoordinatorHTTPHandler) handleGoOnline(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID, ok := handler.driverFromPath(ctx, w, r)
	if !ok {
		return
	}

	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.GoOnline(ctxWithTimeout, ports.GoOnlineInput{
		DriverID:  driverID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /drivers/{driver_id}/offline -----

func (handler *CoordinatorHTTPHandler) handleGoOffline(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID, ok := handler.driverFromPath(ctx, w, r)
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

	res, err := handler.svc.GoOffline(ctxWithTimeout, ports.GoOfflineInput{
		DriverID:     driverID,
		SessionToken: token,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: GET /drivers/{driver_id}/session -----

func (handler *CoordinatorHTTPHandler) handleSessionCheck(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID, ok := handler.driverFromPath(ctx, w, r)
	if !ok {
		return
	}

	token := strings.TrimSpace(r.Header.Get(sessionTokenHeader))
	if token == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing "+sessionTokenHeader+" header", nil)
		return
	}

	res, err := handler.svc.ValidateSession(ctx, driverID, token)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, res)
}

// ----- Handler: GET /drivers/{driver_id}/earnings -----

func (handler *CoordinatorHTTPHandler) handleEarnings(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID, ok := handler.driverFromPath(ctx, w, r)
	if !ok {
		return
	}

	in := ports.EarningsInput{DriverID: driverID}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "invalid 'from' timestamp (want RFC3339)", err)
			return
		}
		in.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "invalid 'to' timestamp (want RFC3339)", err)
			return
		}
		in.To = t
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.Earnings(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- shared helpers -----

// driverFromPath validates the path driver_id against the token subject.
func (handler *CoordinatorHTTPHandler) driverFromPath(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	driverID := strings.TrimSpace(r.PathValue("driver_id"))
	if driverID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing driver_id in path", nil)
		return "", false
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return "", false
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" || sub != driverID {
		handler.httpError(ctx, w, http.StatusForbidden, "driver_id does not match token subject", errors.New("driver/token mismatch"))
		return "", false
	}

	return driverID, true
}

// decodeJSON strictly decodes a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
