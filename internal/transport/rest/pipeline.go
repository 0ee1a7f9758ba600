package rest

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	producterrors "github.com/abgdnv/productapi/internal/errors"
	"github.com/abgdnv/productapi/internal/service"
	"github.com/abgdnv/productapi/pkg/web"
	"github.com/go-playground/validator/v10"
)

const (
	APIKeyHeader = "x-api-key"

	invalidJSONMessage    = "Invalid JSON"
	unauthorizedMessage   = "Unauthorized: Invalid API Key"
	invalidProductMessage = "Invalid product data"
)

type productInputKey struct{}

// Pipeline holds the request stages that sit between the router and the handlers.
// Every stage reports failures through respond.
type Pipeline struct {
	apiKey       []byte
	maxBodyBytes int64
	validate     *validator.Validate
	respond      web.ErrorResponder
}

// NewPipeline creates the stages for the given shared API key.
func NewPipeline(apiKey string, maxBodyBytes int64, respond web.ErrorResponder) *Pipeline {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Pipeline{
		apiKey:       []byte(apiKey),
		maxBodyBytes: maxBodyBytes,
		validate:     validate,
		respond:      respond,
	}
}

// DecodeJSONBody reads JSON request bodies and stores them in the context.
// An empty body counts as no body. Anything but a JSON object is rejected.
func (p *Pipeline) DecodeJSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isJSONContent(r.Header.Get("Content-Type")) {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, p.maxBodyBytes))
		if err != nil {
			p.respond(w, r, producterrors.MalformedBody(invalidJSONMessage, err))
			return
		}
		body = bytes.TrimSpace(body)
		if len(body) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		if body[0] != '{' || !json.Valid(body) {
			p.respond(w, r, producterrors.MalformedBody(invalidJSONMessage, nil))
			return
		}
		ctx := web.WithJSONBody(r.Context(), json.RawMessage(body))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAPIKey rejects requests whose x-api-key header does not match the shared key.
func (p *Pipeline) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), p.apiKey) != 1 {
			p.respond(w, r, producterrors.Unauthorized(unauthorizedMessage))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ValidateProduct checks the decoded body against the product rules and hands
// the resulting service.ProductInput to the next handler.
func (p *Pipeline) ValidateProduct(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		input, err := p.productInput(r.Context())
		if err != nil {
			p.respond(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), productInputKey{}, input)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (p *Pipeline) productInput(ctx context.Context) (service.ProductInput, error) {
	var input service.ProductInput
	errorResponse := make(map[string]string)

	body, ok := web.GetJSONBody(ctx)
	if ok {
		if err := json.Unmarshal(body, &input); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return input, producterrors.MalformedBody(invalidJSONMessage, err)
			}
			// unmarshal keeps going after a type mismatch, so the other fields are still checked
			errorResponse[typeErr.Field] = "failed on rule: " + jsonTypeRule(typeErr.Type)
		}
	}

	if err := p.validate.Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return input, err
		}
		for _, fieldErr := range validationErrors {
			if _, seen := errorResponse[fieldErr.Field()]; !seen {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
		}
	}
	if len(errorResponse) > 0 {
		return input, producterrors.Validation(invalidProductMessage, errorResponse)
	}
	return input, nil
}

// validatedInput returns the input stored by ValidateProduct.
func validatedInput(r *http.Request) (service.ProductInput, bool) {
	input, ok := r.Context().Value(productInputKey{}).(service.ProductInput)
	return input, ok
}

func isJSONContent(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func jsonTypeRule(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int32, reflect.Int64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	default:
		return t.Kind().String()
	}
}
