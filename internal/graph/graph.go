// Package graph serves the storefront GraphQL API.
package graph

import (
	_ "embed"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/kooshamoradpour/G5-TechStore/internal/services"
	"github.com/rs/zerolog"
)

const maxQueryDepth = 10

//go:embed schema.graphql
var schemaSDL string

// NewHandler parses the schema against the resolvers and returns the HTTP
// handler for POST /graphql. The caller's identity is taken from the
// request context, so the handler must sit behind handlers.Authenticate.
func NewHandler(
	accounts *services.AccountService,
	catalog *services.CatalogService,
	cart *services.CartService,
	logger zerolog.Logger,
) (http.Handler, error) {
	resolver := &Resolver{
		accounts: accounts,
		catalog:  catalog,
		cart:     cart,
		logger:   logger,
	}
	schema, err := graphql.ParseSchema(schemaSDL, resolver, graphql.MaxDepth(maxQueryDepth))
	if err != nil {
		return nil, err
	}
	return &relay.Handler{Schema: schema}, nil
}
