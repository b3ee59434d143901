package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Simplici0/invoicing/internal/invoice"
	"github.com/Simplici0/invoicing/internal/obs"
	"github.com/Simplici0/invoicing/internal/wire"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type rootResponse struct {
	Message   string   `json:"message"`
	Discounts []string `json:"discounts"`
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	discounts := make([]string, 0)
	for _, key := range invoice.DiscountKeys() {
		if key != invoice.DiscountNone {
			discounts = append(discounts, key)
		}
	}
	writeJSON(w, http.StatusOK, rootResponse{
		Message:   "Invoicing API running. POST /calculate to price an invoice.",
		Discounts: discounts,
	})
}

func (s *server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	inv, err := wire.DecodeInvoice(body)
	if err != nil {
		s.writeDecodeError(w, err)
		return
	}

	known := invoice.IsKnownDiscount(inv.DiscountKey)
	if !known {
		s.logger.Debug().Str("discount", inv.DiscountKey).Msg("unknown discount key, applying none")
	}

	result := s.calc.Process(inv)
	s.metrics.ObserveInvoice(obs.SourceHTTP, inv.DiscountKey, known)

	writeJSON(w, http.StatusOK, wire.NewResultDocument(result))
}

func (s *server) writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
		return
	}

	var verr *wire.ValidationError
	if errors.As(err, &verr) {
		writeJSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid invoice", verr.Fields)
		return
	}

	s.logger.Debug().Err(err).Msg("decode invoice")
	writeJSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, map[string]any{
		"error": errorBody{Code: code, Message: message, Details: details},
	})
}
