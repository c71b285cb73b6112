package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KeystonCloud/satellite/internal/api/request"
	"github.com/KeystonCloud/satellite/internal/api/response"
	"github.com/KeystonCloud/satellite/internal/deploy"
	"github.com/KeystonCloud/satellite/internal/model"
)

const maxDeployBody = 32 << 20

type DeployService interface {
	Deploy(ctx context.Context, req deploy.DeployRequest) (*model.Deployment, error)
	GetDeployment(ctx context.Context, id string) (*model.Deployment, error)
	ListDeploymentNodes(ctx context.Context, deploymentID string) ([]model.DeploymentNode, error)
}

type Deploy struct {
	svc DeployService
}

func NewDeploy(svc DeployService) *Deploy {
	return &Deploy{svc: svc}
}

// Create starts a deployment and answers 202 with the PUBLISHING record.
// Name publication and node delivery finish after the response.
func (h *Deploy) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDeployBody)

	var req request.Deploy
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	dep, err := h.svc.Deploy(r.Context(), deploy.DeployRequest{
		AppID:   req.AppID,
		TeamID:  req.TeamID,
		Name:    req.Name,
		Content: []byte(req.Content),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusAccepted, dep)
}

func (h *Deploy) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	dep, err := h.svc.GetDeployment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, dep)
}

func (h *Deploy) ListNodes(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	nodes, err := h.svc.ListDeploymentNodes(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if nodes == nil {
		nodes = []model.DeploymentNode{}
	}
	response.WriteJSON(w, http.StatusOK, nodes)
}
