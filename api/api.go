// Package api embeds the OpenAPI description of the control plane.
package api

import _ "embed"

//go:embed openapi.yml
var OpenAPISpec []byte
