// Package api embeds the OpenAPI spec served under /swagger.
package api

import _ "embed"

//go:embed openapi.json
var OpenAPISpec []byte
