package server

import (
	_ "embed"
)

//go:embed openapi.yaml
var openapiDocument []byte

// OpenAPIDocument は埋め込まれた OpenAPI ドキュメントを返す
func OpenAPIDocument() []byte {
	return openapiDocument
}
