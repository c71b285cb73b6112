package handler

import (
	"context"
	"net/http"

	"github.com/KeystonCloud/satellite/internal/api/request"
	"github.com/KeystonCloud/satellite/internal/api/response"
	"github.com/KeystonCloud/satellite/internal/model"
)

// NodeService is the node-facing side of the coordinator.
type NodeService interface {
	RegisterNode(ctx context.Context, id string, addr model.Address) model.NodeRecord
	HeartbeatNode(ctx context.Context, id string) (model.NodeRecord, error)
	ListLiveNodes(ctx context.Context) ([]model.NodeRecord, error)
}

type Node struct {
	svc NodeService
}

func NewNode(svc NodeService) *Node {
	return &Node{svc: svc}
}

func (h *Node) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterNode
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ip := req.IP
	if ip == "" {
		ip = remoteIP(r)
	}

	rec := h.svc.RegisterNode(r.Context(), req.ID, model.Address{Host: ip, Port: req.Port})
	response.WriteJSON(w, http.StatusOK, rec)
}

func (h *Node) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req request.HeartbeatNode
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.svc.HeartbeatNode(r.Context(), req.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, rec)
}

func (h *Node) List(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.ListLiveNodes(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if nodes == nil {
		nodes = []model.NodeRecord{}
	}
	response.WriteJSON(w, http.StatusOK, nodes)
}
