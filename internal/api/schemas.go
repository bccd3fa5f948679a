package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dshills/orderdesk/pkg/types"
)

// Request body schemas. They check shape and types; field-level business
// rules stay in the services so every entry point reports them the same way.

const placeOrderSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["customerInfo", "items", "paymentMethod"],
  "properties": {
    "customerInfo": {
      "type": "object",
      "properties": {
        "fullName":   { "type": "string" },
        "email":      { "type": "string" },
        "phone":      { "type": "string" },
        "address":    { "type": "string" },
        "city":       { "type": "string" },
        "postalCode": { "type": "string" }
      }
    },
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["productId", "quantity"],
        "properties": {
          "productId": { "type": "string" },
          "quantity":  { "type": "integer" }
        }
      }
    },
    "paymentMethod": { "type": "string" },
    "notes":         { "type": "string" }
  }
}`

const statusUpdateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "orderStatus":   { "type": "string" },
    "paymentStatus": { "type": "string" },
    "adminNotes":    { "type": "string" },
    "force":         { "type": "boolean" }
  },
  "additionalProperties": false
}`

const cancelSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "reason": { "type": "string" }
  }
}`

const productCreateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "price"],
  "properties": {
    "name":        { "type": "string" },
    "description": { "type": "string" },
    "image":       { "type": "string" },
    "price":       { "type": ["number", "string"] },
    "stock":       { "type": "integer" },
    "isActive":    { "type": "boolean" }
  },
  "additionalProperties": false
}`

const productUpdateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "name":        { "type": "string" },
    "description": { "type": "string" },
    "image":       { "type": "string" },
    "price":       { "type": ["number", "string"] },
    "stock":       { "type": "integer" },
    "isActive":    { "type": "boolean" }
  },
  "additionalProperties": false
}`

var (
	placeOrderLoader    = gojsonschema.NewStringLoader(placeOrderSchema)
	statusUpdateLoader  = gojsonschema.NewStringLoader(statusUpdateSchema)
	cancelLoader        = gojsonschema.NewStringLoader(cancelSchema)
	productCreateLoader = gojsonschema.NewStringLoader(productCreateSchema)
	productUpdateLoader = gojsonschema.NewStringLoader(productUpdateSchema)
)

// validateJSONSchema reports the first schema violation as a validation error
func validateJSONSchema(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return types.Validationf("Request body is not valid JSON")
	}
	if result.Valid() {
		return nil
	}
	e := result.Errors()[0]
	if e.Field() == "(root)" {
		return types.Validationf("%s", e.Description())
	}
	return types.Validationf("%s: %s", e.Field(), e.Description())
}

// decodeBody reads the request body, checks it against schema and decodes it
// into dst. An empty body is treated as {} when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, schema gojsonschema.JSONLoader, dst interface{}, allowEmpty bool) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return types.Validationf("Request body too large or unreadable")
	}
	if len(body) == 0 {
		if !allowEmpty {
			return types.Validationf("Request body is required")
		}
		body = []byte("{}")
	}
	if err := validateJSONSchema(schema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return types.Validationf("Invalid request body: %v", err)
	}
	return nil
}
