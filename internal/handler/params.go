package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"trainquery/internal/match"
	"trainquery/internal/network"
)

// BadRequestError is a client error with the status it should be reported
// with.
type BadRequestError struct {
	Message    string
	StatusCode int
}

func (e *BadRequestError) Error() string { return e.Message }

func badRequest(format string, args ...any) *BadRequestError {
	return &BadRequestError{Message: fmt.Sprintf(format, args...), StatusCode: http.StatusBadRequest}
}

func notFound(format string, args ...any) *BadRequestError {
	return &BadRequestError{Message: fmt.Sprintf(format, args...), StatusCode: http.StatusNotFound}
}

// requireParam returns a query parameter that must be present.
func requireParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", badRequest("missing %q parameter", name)
	}
	return v, nil
}

// requireIntParam returns a required integer query parameter.
func requireIntParam(r *http.Request, name string) (int, error) {
	v, err := requireParam(r, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%q must be an integer", name)
	}
	return n, nil
}

// intParam returns an optional integer query parameter within [min, max].
func intParam(r *http.Request, name string, def, min, max int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("%q must be an integer", name)
	}
	if n < min || n > max {
		return 0, badRequest("%q must be between %d and %d", name, min, max)
	}
	return n, nil
}

// boolParam returns an optional boolean query parameter.
func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest("%q must be true or false", name)
	}
	return b, nil
}

// requireStopParam resolves a required stop ID parameter against net.
func requireStopParam(r *http.Request, net *network.Network, name string) (network.Stop, error) {
	id, err := requireIntParam(r, name)
	if err != nil {
		return network.Stop{}, err
	}
	return requireStop(net, id)
}

func requireStop(net *network.Network, id int) (network.Stop, error) {
	stop, err := net.RequireStop(network.StopID(id))
	if err != nil {
		return network.Stop{}, notFound("%v", err)
	}
	return stop, nil
}

// requirePathInt parses an integer path value.
func requirePathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, badRequest("%q must be an integer", name)
	}
	return n, nil
}

// timeParam parses an optional RFC 3339 instant, defaulting to now.
func timeParam(r *http.Request, name string, now time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return now, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, badRequest("%q must be an RFC 3339 time", name)
	}
	return t, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code. Client errors keep their
// message; anything else is logged and reported as a 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		badReq   *BadRequestError
		selector *network.InvalidRouteSelectorError
		line     *network.UnknownLineError
		stop     *network.UnknownStopError
		cycle    *match.ContinuationCycleError
	)
	switch {
	case errors.As(err, &badReq):
		writeJSON(w, badReq.StatusCode, errorBody{Error: badReq.Message})
	case errors.As(err, &line), errors.As(err, &stop):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &selector):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.As(err, &cycle):
		h.logger.Error("continuation config loops", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "network continuation config is invalid"})
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// writeSearchError reports a failed departure search. A selector error here
// comes from a timetable entry, not the request, so it is a server fault.
func (h *Handler) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	var selector *network.InvalidRouteSelectorError
	if errors.As(err, &selector) {
		h.logger.Error("timetable entry has no stop list", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "timetable config is invalid"})
		return
	}
	h.writeError(w, r, err)
}
