// cmd/api/handlers.go
// HTTP handlers for beers and the conversations they are edited in.
package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/aoideee/beer-rating/internal/beers"
	"github.com/aoideee/beer-rating/internal/data"
	"github.com/aoideee/beer-rating/internal/validator"
)

// healthcheckHandler handles GET /v1/healthcheck.
func (app *applicationDependencies) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	env := envelope{
		"status": "available",
		"system_info": map[string]string{
			"environment": app.config.environment,
			"version":     appVersion,
		},
	}
	err := app.writeJSON(w, http.StatusOK, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createConversationHandler handles POST /v1/conversations.
// It begins a conversation holding an empty beer and returns its id.
func (app *applicationDependencies) createConversationHandler(w http.ResponseWriter, r *http.Request) {
	sess := app.beers.NewSession()
	sess.Lock()
	defer sess.Unlock()

	outcome := sess.Create()

	env := envelope{"conversation": sess.ConversationID(), "outcome": outcome, "beer": sess.Beer()}
	err := app.writeJSON(w, http.StatusCreated, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// cancelConversationHandler handles DELETE /v1/conversations/:cid.
func (app *applicationDependencies) cancelConversationHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.lockSession(w, r)
	if !ok {
		return
	}
	defer sess.Unlock()

	sess.Cancel()

	err := app.writeJSON(w, http.StatusOK, envelope{"message": "conversation cancelled"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// retrieveBeerHandler handles GET /v1/conversations/:cid/beer[/:id].
// Without an id the edit buffer becomes a copy of the conversation's search
// example; with one it is loaded from the store.
func (app *applicationDependencies) retrieveBeerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sess, ok := app.lockSession(w, r)
	if !ok {
		return
	}
	defer sess.Unlock()

	err = sess.Retrieve(r.Context(), id, false)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"conversation": sess.ConversationID(), "beer": sess.Beer()}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBeerHandler handles PUT /v1/conversations/:cid/beer.
// It binds the body onto the edit buffer and saves it. A failed save answers
// 409 with the notices and leaves the conversation open.
func (app *applicationDependencies) updateBeerHandler(w http.ResponseWriter, r *http.Request) {
	var input data.BeerInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sess, ok := app.lockSession(w, r)
	if !ok {
		return
	}
	defer sess.Unlock()

	sess.Bind(input)

	v := validator.New()
	data.ValidateBeer(v, sess.Beer())
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	outcome := sess.Update(r.Context())
	if outcome == beers.NoOutcome {
		app.noticeResponse(w, r, sess.ConversationID(), sess.Notices())
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"outcome": outcome, "beer": sess.Beer()}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBeerHandler handles DELETE /v1/conversations/:cid/beer/:id.
func (app *applicationDependencies) deleteBeerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sess, ok := app.lockSession(w, r)
	if !ok {
		return
	}
	defer sess.Unlock()

	outcome := sess.Delete(r.Context(), id)
	if outcome == beers.NoOutcome {
		app.noticeResponse(w, r, sess.ConversationID(), sess.Notices())
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"outcome": outcome, "message": "beer successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// searchConversationHandler handles GET /v1/conversations/:cid/search.
// Supplying any of name, taste or score replaces the conversation's example
// and rewinds to page 0; page then moves the cursor.
func (app *applicationDependencies) searchConversationHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()
	example, present := app.readExample(qs, v)
	page := app.readPage(qs, v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	sess, ok := app.lockSession(w, r)
	if !ok {
		return
	}
	defer sess.Unlock()

	if present {
		sess.Search(example)
	}
	if qs.Has("page") {
		sess.SetPage(page)
	}
	app.paginate(w, r, sess)
}

// listBeersHandler handles GET /v1/beers.
// It searches on a throwaway session, so nothing is remembered between calls.
func (app *applicationDependencies) listBeersHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()
	example, _ := app.readExample(qs, v)
	page := app.readPage(qs, v)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	sess := app.beers.NewSession()
	sess.Search(example)
	sess.SetPage(page)
	app.paginate(w, r, sess)
}

func (app *applicationDependencies) paginate(w http.ResponseWriter, r *http.Request, sess *beers.Session) {
	err := sess.Paginate(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	env := envelope{
		"beers":    sess.PageItems(),
		"example":  sess.Example(),
		"metadata": data.NewMetadata(sess.Count(), sess.Page(), sess.PageSize()),
	}
	if !sess.Conversation().IsTransient() {
		env["conversation"] = sess.ConversationID()
	}

	err = app.writeJSON(w, http.StatusOK, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBeerHandler handles GET /v1/beers/:id.
func (app *applicationDependencies) showBeerHandler(w http.ResponseWriter, r *http.Request) {
	value := httprouter.ParamsFromContext(r.Context()).ByName("id")

	beer, err := app.beers.ResolveFromID(r.Context(), value)
	if err != nil {
		switch {
		case errors.Is(err, beers.ErrInvalidID):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"beer": beer}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type beerOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// beerOptionsHandler handles GET /v1/beer-options.
// It lists every beer as a value/label pair for selection lists; the value
// round-trips through GET /v1/beers/:id.
func (app *applicationDependencies) beerOptionsHandler(w http.ResponseWriter, r *http.Request) {
	all, err := app.beers.All(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	options := make([]beerOption, 0, len(all))
	for _, b := range all {
		options = append(options, beerOption{Value: app.beers.FormatAsID(b), Label: b.Name})
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"options": options}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// stageChildHandler handles GET /v1/conversations/:cid/child.
func (app *applicationDependencies) stageChildHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.lockSession(w, r)
	if !ok {
		return
	}
	defer sess.Unlock()

	err := app.writeJSON(w, http.StatusOK, envelope{"child": sess.StageChild()}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// takeChildHandler handles POST /v1/conversations/:cid/child.
// The body is bound onto the staged child, which is then handed over and
// replaced by a fresh one.
func (app *applicationDependencies) takeChildHandler(w http.ResponseWriter, r *http.Request) {
	var input data.BeerInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sess, ok := app.lockSession(w, r)
	if !ok {
		return
	}
	defer sess.Unlock()

	input.Apply(sess.StageChild())
	child := sess.TakeStagedChild()

	err = app.writeJSON(w, http.StatusCreated, envelope{"child": child}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
