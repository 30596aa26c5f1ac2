package graph

import (
	"github.com/kooshamoradpour/G5-TechStore/internal/services"
)

// resolverError is returned from resolvers unwrapped so that graphql-go
// copies its extensions into the response.
type resolverError struct {
	message string
	code    string
}

func (e *resolverError) Error() string {
	return e.message
}

func (e *resolverError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

func (r *Resolver) fail(op string, err error) error {
	code := services.ErrorCode(err)
	if code == services.CodeInternal {
		r.logger.Error().Err(err).Str("operation", op).Msg("graphql resolver failed")
	}
	return &resolverError{message: services.PublicMessage(err), code: code}
}
