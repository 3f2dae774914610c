//go:build tools
// +build tools

// Pins oapi-codegen so clients generated from api/openapi.yaml use the same
// version everywhere:
//
//	go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen -generate types,client -package billingclient api/openapi.yaml
package tools

import (
	_ "github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen"
)
