package handler

import (
	"errors"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/KeystonCloud/satellite/internal/api/response"
	"github.com/KeystonCloud/satellite/internal/core"
	"github.com/KeystonCloud/satellite/internal/deploy"
	"github.com/KeystonCloud/satellite/internal/registry"
)

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var storeErr *deploy.StoreError
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, registry.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidID):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &storeErr):
		response.WriteError(w, http.StatusBadGateway, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// remoteIP returns the host part of the request's remote address.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
