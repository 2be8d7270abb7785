package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// HeaderAttendeeID carries the authenticated attendee id. Authentication
// happens in front of this server.
const HeaderAttendeeID = "X-Attendee-ID"

const maxBodyBytes = 64 << 10

// requester returns the caller's attendee id.
func requester(r *http.Request) (string, error) {
	uid := strings.TrimSpace(r.Header.Get(HeaderAttendeeID))
	if uid == "" {
		return "", errors.New("missing " + HeaderAttendeeID + " header")
	}
	return uid, nil
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
