package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

// wantsCBOR reports whether the client asked for a CBOR body.
func wantsCBOR(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), contentTypeCBOR)
}

// writeBody encodes v as CBOR or JSON depending on the Accept header.
func writeBody(w http.ResponseWriter, r *http.Request, code int, v any) {
	var (
		data []byte
		err  error
		ct   = contentTypeJSON
	)
	if wantsCBOR(r) {
		ct = contentTypeCBOR
		data, err = cbor.Marshal(v)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		log.WithError(err).WithField("request_id", requestIDFrom(r.Context())).Error("encode response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(code)
	w.Write(data)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	log.WithFields(logrus.Fields{
		"request_id": requestIDFrom(r.Context()),
		"path":       r.URL.Path,
		"code":       code,
	}).Debug(msg)
	writeBody(w, r, code, ErrorResponse{Error: msg})
}
