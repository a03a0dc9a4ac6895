// cmd/api/helpers.go
// General-purpose request and response helpers. Error responses live in errors.go.
package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/aoideee/beer-rating/internal/beers"
	"github.com/aoideee/beer-rating/internal/data"
	"github.com/aoideee/beer-rating/internal/validator"
)

// envelope is the top-level JSON wrapper used for all API responses,
// e.g. {"beer": {...}} or {"beers": [...], "metadata": {...}}.
type envelope map[string]any

// readIDParam extracts the optional ":id" URL parameter. A missing parameter
// yields 0; a present one must be a positive integer.
func (app *applicationDependencies) readIDParam(r *http.Request) (int64, error) {
	raw := httprouter.ParamsFromContext(r.Context()).ByName("id")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id parameter")
	}
	return id, nil
}

// readString reads a string query parameter, returning defaultValue if it is absent or empty.
func (app *applicationDependencies) readString(qs url.Values, key, defaultValue string) string {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	return s
}

// readInt reads an integer query parameter. A malformed value is recorded in v.
func (app *applicationDependencies) readInt(qs url.Values, key string, defaultValue int, v *validator.Validator) int {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		v.AddError(key, "must be an integer value")
		return defaultValue
	}
	return i
}

// readExample builds a search example from the name, taste and score query
// parameters. present reports whether any of them was supplied.
func (app *applicationDependencies) readExample(qs url.Values, v *validator.Validator) (example data.Beer, present bool) {
	example.Name = app.readString(qs, "name", "")
	example.Taste = app.readString(qs, "taste", "")
	example.Score = app.readInt(qs, "score", 0, v)
	data.ValidateScore(v, example.Score)
	present = qs.Has("name") || qs.Has("taste") || qs.Has("score")
	return example, present
}

// readPage reads the zero-based page query parameter.
func (app *applicationDependencies) readPage(qs url.Values, v *validator.Validator) int {
	page := app.readInt(qs, "page", 0, v)
	v.Check(page >= 0, "page", "must not be negative")
	v.Check(page <= 10_000_000, "page", "must be a maximum of 10 million")
	return page
}

// lockSession resolves the ":cid" URL parameter to its session and locks it;
// the caller must Unlock. It writes a 404 and returns false when the
// conversation is unknown, has expired, or ended while we waited for the lock.
func (app *applicationDependencies) lockSession(w http.ResponseWriter, r *http.Request) (*beers.Session, bool) {
	cid := httprouter.ParamsFromContext(r.Context()).ByName("cid")
	sess, err := app.beers.Session(cid)
	if err != nil {
		app.conversationNotFoundResponse(w, r)
		return nil, false
	}

	sess.Lock()
	if sess.Conversation().IsTransient() {
		sess.Unlock()
		app.conversationNotFoundResponse(w, r)
		return nil, false
	}
	return sess, true
}

// writeJSON marshals data to indented JSON, applies any custom headers and
// writes the status code and body.
func (app *applicationDependencies) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
	return nil
}

// readJSON decodes a single JSON value from the request body into dst. The
// body is capped at 1 MB and unknown fields are rejected.
func (app *applicationDependencies) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("body must not be empty")
		}
		return err
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}
