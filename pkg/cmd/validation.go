package cmd

import (
	"log/slog"
	"net/http"

	"github.com/dukex/autoflow/pkg/actions"
	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/services"
	"github.com/go-playground/validator/v10"
)

// NewGraphValidator checks workflows against the built-in action schemas
// without opening a runtime.
func NewGraphValidator(logger *slog.Logger, store persistence.EntityStore) *services.GraphValidator {
	client := &http.Client{Timeout: defaultHTTPTimeout}
	dispatcher := actions.NewDefaultDispatcher(logger, store, actions.DefaultSenders(logger, client), client)

	return services.NewGraphValidator(validator.New(validator.WithRequiredStructEnabled()), dispatcher, conditions.NewEvaluator(logger))
}
