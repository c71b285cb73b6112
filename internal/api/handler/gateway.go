package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/KeystonCloud/satellite/internal/api/request"
	"github.com/KeystonCloud/satellite/internal/api/response"
)

type ContentFetcher interface {
	Fetch(ctx context.Context, appName string) ([]byte, error)
}

// Gateway serves an application's published content by name.
type Gateway struct {
	fetcher ContentFetcher
}

func NewGateway(fetcher ContentFetcher) *Gateway {
	return &Gateway{fetcher: fetcher}
}

func (h *Gateway) Serve(w http.ResponseWriter, r *http.Request) {
	name, err := request.RequireID(chi.URLParam(r, "name"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := h.fetcher.Fetch(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
