package rest

import (
	"errors"
	"log/slog"
	"net/http"

	producterrors "github.com/abgdnv/productapi/internal/errors"
	"github.com/abgdnv/productapi/pkg/web"
)

const internalErrorMessage = "Internal Server Error"

// ErrorTranslator converts any error raised by a pipeline stage or handler into a response.
// It is the only place where error kinds become status codes.
type ErrorTranslator struct {
	logger *slog.Logger
}

func NewErrorTranslator(logger *slog.Logger) *ErrorTranslator {
	return &ErrorTranslator{
		logger: logger.With("component", "error_translator"),
	}
}

// Respond writes the status and body for err. Untagged errors are internal:
// their detail is logged and never sent to the caller.
func (t *ErrorTranslator) Respond(w http.ResponseWriter, r *http.Request, err error) {
	var tagged *producterrors.Error
	if !errors.As(err, &tagged) || tagged.Kind == producterrors.KindInternal {
		t.logger.ErrorContext(r.Context(), "Internal error", "method", r.Method, "path", r.URL.Path, "error", err)
		web.RespondError(w, t.logger, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	t.logger.WarnContext(r.Context(), "Request rejected", "kind", tagged.Kind.String(), "error", err)
	switch tagged.Kind {
	case producterrors.KindNotFound:
		web.RespondError(w, t.logger, http.StatusNotFound, tagged.Message)
	case producterrors.KindValidation:
		body := map[string]any{"error": tagged.Message}
		if len(tagged.Fields) > 0 {
			body["validation_errors"] = tagged.Fields
		}
		web.RespondJSON(w, t.logger, http.StatusBadRequest, body)
	case producterrors.KindMalformedBody, producterrors.KindMissingParameter:
		web.RespondText(w, http.StatusBadRequest, tagged.Message)
	case producterrors.KindUnauthorized:
		web.RespondText(w, http.StatusUnauthorized, tagged.Message)
	}
}
