package http

import (
	"reflect"
	"strings"
	"time"
)

// Doc holds the machine-readable description a handler exposes for the
// OpenAPI document: an optional summary plus sample input/output values
// whose types are reflected into schemas.
type Doc struct {
	Summary string
	Input   any
	Output  any
}

// OpenAPIDoc is a minimal OpenAPI 3 description of the route table.
type OpenAPIDoc struct {
	OpenAPI string                          `json:"openapi"`
	Info    OpenAPIInfo                     `json:"info"`
	Paths   map[string]map[string]Operation `json:"paths"`
}

type OpenAPIInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

type Operation struct {
	Summary     string              `json:"summary,omitempty"`
	Security    []map[string][]any  `json:"security,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses"`
}

type RequestBody struct {
	Required bool                 `json:"required"`
	Content  map[string]MediaType `json:"content"`
}

type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

type MediaType struct {
	Schema map[string]any `json:"schema"`
}

// BuildOpenAPI reflects the dispatcher's route table into an OpenAPI
// document, one operation per registered (verb, path).
func BuildOpenAPI(version string, d *Dispatcher) OpenAPIDoc {
	doc := OpenAPIDoc{
		OpenAPI: "3.0.3",
		Info:    OpenAPIInfo{Title: "payqr", Version: version},
		Paths:   make(map[string]map[string]Operation),
	}

	for _, key := range d.order {
		spec := d.routes[key]
		path := "/api/public" + spec.Path

		op := Operation{
			Summary:   spec.Doc.Summary,
			Responses: map[string]Response{},
		}

		if len(spec.Requires) > 0 {
			op.Security = []map[string][]any{{"bearerToken": {}}}
		}

		if spec.Doc.Input != nil {
			op.RequestBody = &RequestBody{
				Required: true,
				Content: map[string]MediaType{
					"application/json": {Schema: schemaFor(reflect.TypeOf(spec.Doc.Input))},
				},
			}
		}

		success := Response{Description: "success"}
		if spec.Doc.Output != nil {
			success.Content = map[string]MediaType{
				"application/json": {Schema: schemaFor(reflect.TypeOf(spec.Doc.Output))},
			}
		}
		op.Responses["200"] = success
		op.Responses["default"] = Response{
			Description: "error envelope",
			Content: map[string]MediaType{
				"application/json": {Schema: schemaFor(reflect.TypeOf(ErrorResponse{}))},
			},
		}

		if doc.Paths[path] == nil {
			doc.Paths[path] = make(map[string]Operation)
		}
		doc.Paths[path][strings.ToLower(key.verb)] = op
	}

	return doc
}

var timeType = reflect.TypeOf(time.Time{})

// schemaFor maps a Go type to a JSON schema fragment. It follows json
// struct tags and covers the shapes the API actually uses.
func schemaFor(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch {
	case t == timeType:
		return map[string]any{"type": "string", "format": "date-time"}
	case t.String() == "uuid.UUID":
		// [16]byte underneath, but serializes as a string.
		return map[string]any{"type": "string", "format": "uuid"}
	case t.Kind() == reflect.String:
		return map[string]any{"type": "string"}
	case t.Kind() >= reflect.Int && t.Kind() <= reflect.Uint64:
		return map[string]any{"type": "integer"}
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		return map[string]any{"type": "number"}
	case t.Kind() == reflect.Bool:
		return map[string]any{"type": "boolean"}
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8:
		// []byte marshals as base64 text.
		return map[string]any{"type": "string", "format": "byte"}
	case t.Kind() == reflect.Slice:
		return map[string]any{"type": "array", "items": schemaFor(t.Elem())}
	case t.Kind() == reflect.Struct:
		return structSchema(t)
	default:
		return map[string]any{}
	}
}

func structSchema(t reflect.Type) map[string]any {
	properties := make(map[string]any)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		properties[name] = schemaFor(f.Type)
	}

	return map[string]any{"type": "object", "properties": properties}
}
