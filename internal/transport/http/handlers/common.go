package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/taskflow/internal/domain"
	"github.com/baechuer/taskflow/internal/transport/http/dto"
	"github.com/baechuer/taskflow/internal/transport/http/middleware"
	"github.com/baechuer/taskflow/internal/transport/http/response"
)

// actor returns the authenticated caller or writes a 401.
func actor(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return domain.Principal{}, false
	}
	return p, true
}

// decodeValid decodes the body into dst and runs the struct validation.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := response.DecodeJSON(r, dst); err != nil {
		response.WriteError(w, r, err)
		return false
	}
	if err := dto.Validate(dst); err != nil {
		response.WriteError(w, r, err)
		return false
	}
	return true
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}
