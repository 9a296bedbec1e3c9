package graphql

import (
	"fmt"

	graphql "github.com/graph-gophers/graphql-go"
)

// Schemas holds the three parsed schemas backing the client, mix, and
// dashboard surfaces (§4.7). Each is independently mountable behind its
// own auth realm.
type Schemas struct {
	Client    *graphql.Schema
	Mix       *graphql.Schema
	Dashboard *graphql.Schema
}

// NewSchemas parses all three schema documents against their resolvers.
// graphql.UseFieldResolvers lets a resolver expose plain fields as well
// as methods, matching how the view types in types.go project domain
// values without extra boilerplate getters where a field would do.
func NewSchemas(client *ClientResolver, mix *MixResolver, dashboard *DashboardResolver) (*Schemas, error) {
	clientSchemaParsed, err := graphql.ParseSchema(clientSchema, client, graphql.UseFieldResolvers())
	if err != nil {
		return nil, fmt.Errorf("parse client schema: %w", err)
	}
	mixSchemaParsed, err := graphql.ParseSchema(mixSchema, mix, graphql.UseFieldResolvers())
	if err != nil {
		return nil, fmt.Errorf("parse mix schema: %w", err)
	}
	dashboardSchemaParsed, err := graphql.ParseSchema(dashboardSchema, dashboard, graphql.UseFieldResolvers())
	if err != nil {
		return nil, fmt.Errorf("parse dashboard schema: %w", err)
	}
	return &Schemas{
		Client:    clientSchemaParsed,
		Mix:       mixSchemaParsed,
		Dashboard: dashboardSchemaParsed,
	}, nil
}
