package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harvestlink/market-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/market-backend/pkg/errors"
)

// ListQuery holds the list filters shared by the buyer and farmer order listings. Status is
// parsed here; an unknown value is a validation error before the service is called.
type ListQuery struct {
	Limit  int
	Cursor string
	Title  string
	Status *enums.OrderStatus
}

func ParseListQuery(r *http.Request, defaultLimit, maxLimit int) (ListQuery, error) {
	query := r.URL.Query()
	out := ListQuery{
		Limit:  defaultLimit,
		Cursor: strings.TrimSpace(query.Get("cursor")),
		Title:  query.Get("title"),
	}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return out, invalidParam("limit", "must be an integer")
		}
		if limit < 1 || limit > maxLimit {
			return out, invalidParam("limit", "must be between 1 and "+strconv.Itoa(maxLimit))
		}
		out.Limit = limit
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return out, invalidParam("status", "must be one of shipped, completed, cancelled, refunded")
		}
		out.Status = &status
	}
	return out, nil
}

// PathUUID reads a chi URL parameter that must hold a uuid.
func PathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, invalidParam(param, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param).
			WithDetails(map[string]string{param: "must be a uuid"})
	}
	return id, nil
}

func invalidParam(name, rule string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name).
		WithDetails(map[string]string{name: rule})
}
