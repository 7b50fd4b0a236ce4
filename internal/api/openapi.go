// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"

	xglog "github.com/ManuGH/simgw/internal/log"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/oapi-codegen/runtime"
	"github.com/oasdiff/yaml"
)

//go:embed openapi.yaml
var openapiYAML []byte

// LoadOpenAPI parses and validates the embedded API document.
func LoadOpenAPI(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
}

// contract holds the parsed document and its request router.
type contract struct {
	router routers.Router
	json   []byte
}

func newContract(ctx context.Context) (*contract, error) {
	doc, err := LoadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("openapi router: %w", err)
	}
	raw, err := yaml.YAMLToJSON(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("convert openapi document: %w", err)
	}
	return &contract{router: router, json: raw}, nil
}

// validateRequests rejects requests that do not match the document with a
// 400. Routes the document does not describe pass through unchanged.
func (c *contract) validateRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := c.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			logger := xglog.WithComponentFromContext(r.Context(), "api")
			logger.Debug().
				Err(err).
				Str(xglog.FieldEvent, "request.rejected").
				Str("operation", route.Operation.OperationID).
				Msg("request does not match the API document")
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validationMessage reduces a validation error to one line.
func validationMessage(err error) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		// allOf and friends wrap the failing property error.
		for {
			var inner *openapi3.SchemaError
			if schemaErr.Origin == nil || !errors.As(schemaErr.Origin, &inner) {
				break
			}
			schemaErr = inner
		}
		if ptr := schemaErr.JSONPointer(); len(ptr) > 0 {
			return fmt.Sprintf("%s: %s", strings.Join(ptr, "."), schemaErr.Reason)
		}
		return schemaErr.Reason
	}
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Parameter != nil {
			return fmt.Sprintf("parameter %s: %s", reqErr.Parameter.Name, reqErr.Reason)
		}
		if reqErr.Err != nil {
			return fmt.Sprintf("invalid request body: %v", reqErr.Err)
		}
		if reqErr.Reason != "" {
			return reqErr.Reason
		}
	}
	return err.Error()
}

// pathID binds the {id} path parameter the way generated chi wrappers do.
func pathID(raw string) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", raw, &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", fmt.Errorf("invalid format for parameter id: %w", err)
	}
	return id, nil
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	writeRawJSON(w, http.StatusOK, s.contract.json)
}
