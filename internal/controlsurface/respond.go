package controlsurface

import (
	"encoding/json"
	"net/http"

	"github.com/yourusername/btcrelay/internal/relayerr"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps a RelayError's classification to an HTTP status the way
// spec §7's taxonomy implies (NotFound -> 404, InvalidInput -> 400,
// DecryptFailed -> 401, InsufficientBalance -> 409, TransientNetwork and
// BroadcastRejected -> 503, Fatal -> 500). Unclassified errors fall back
// to 500 without leaking internal detail.
func writeError(w http.ResponseWriter, err error) {
	if re, ok := err.(*relayerr.RelayError); ok {
		status := http.StatusInternalServerError
		switch re.Classification {
		case relayerr.NotFound:
			status = http.StatusNotFound
		case relayerr.InvalidInput:
			status = http.StatusBadRequest
		case relayerr.DecryptFailed:
			status = http.StatusUnauthorized
		case relayerr.InsufficientBalance:
			status = http.StatusConflict
		case relayerr.TransientNetwork, relayerr.BroadcastRejected:
			status = http.StatusServiceUnavailable
		case relayerr.Fatal:
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorBody{Error: re.Message, Code: re.Code})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return relayerr.NewInvalidInputError("malformed JSON body: " + err.Error())
	}
	return nil
}
