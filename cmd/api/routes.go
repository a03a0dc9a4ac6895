// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers every endpoint and wraps the router in middleware.
//
// Middleware chain (outermost → innermost):
//
//	instrument → recoverPanic → rateLimit → router
//
// Conversation endpoints (:cid is the id returned on create):
//
//	POST   /v1/conversations               – begin a conversation with an empty beer
//	DELETE /v1/conversations/:cid          – cancel the conversation
//	GET    /v1/conversations/:cid/beer     – edit a new beer copied from the search example
//	GET    /v1/conversations/:cid/beer/:id – edit an existing beer
//	PUT    /v1/conversations/:cid/beer     – bind and save the beer being edited
//	DELETE /v1/conversations/:cid/beer/:id – delete a beer
//	GET    /v1/conversations/:cid/search   – search and page inside the conversation
//	GET    /v1/conversations/:cid/child    – show the staged child beer
//	POST   /v1/conversations/:cid/child    – bind and take the staged child beer
//
// Stateless endpoints:
//
//	GET    /v1/beers                       – one-shot search
//	GET    /v1/beers/:id                   – show a beer
//	GET    /v1/beer-options                – every beer as an id/label pair
//	GET    /v1/healthcheck                 – liveness and version
//	GET    /metrics                        – Prometheus metrics
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	router.HandlerFunc(http.MethodPost, "/v1/conversations", app.createConversationHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/conversations/:cid", app.cancelConversationHandler)
	router.HandlerFunc(http.MethodGet, "/v1/conversations/:cid/beer", app.retrieveBeerHandler)
	router.HandlerFunc(http.MethodGet, "/v1/conversations/:cid/beer/:id", app.retrieveBeerHandler)
	router.HandlerFunc(http.MethodPut, "/v1/conversations/:cid/beer", app.updateBeerHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/conversations/:cid/beer/:id", app.deleteBeerHandler)
	router.HandlerFunc(http.MethodGet, "/v1/conversations/:cid/search", app.searchConversationHandler)
	router.HandlerFunc(http.MethodGet, "/v1/conversations/:cid/child", app.stageChildHandler)
	router.HandlerFunc(http.MethodPost, "/v1/conversations/:cid/child", app.takeChildHandler)

	router.HandlerFunc(http.MethodGet, "/v1/beers", app.listBeersHandler)
	router.HandlerFunc(http.MethodGet, "/v1/beers/:id", app.showBeerHandler)
	router.HandlerFunc(http.MethodGet, "/v1/beer-options", app.beerOptionsHandler)

	router.Handler(http.MethodGet, "/metrics", app.metrics.handler())

	return app.instrument(app.recoverPanic(app.rateLimit(router)))
}
