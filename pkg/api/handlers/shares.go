package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/service"
	"github.com/lakegate/lakegate/pkg/share/store"
)

// ShareHandler handles share object lifecycle endpoints.
type ShareHandler struct {
	service *service.Service
}

// NewShareHandler creates a new share handler.
func NewShareHandler(svc *service.Service) *ShareHandler {
	return &ShareHandler{service: svc}
}

// CreateShareRequest is the body of POST /v1/shares.
type CreateShareRequest struct {
	DatasetURI     string `json:"dataset_uri"`
	EnvironmentURI string `json:"environment_uri"`
	GroupURI       string `json:"group_uri"`

	PrincipalID       string `json:"principal_id"`
	PrincipalType     string `json:"principal_type"`
	PrincipalRoleName string `json:"principal_role_name,omitempty"`

	Permissions      []string `json:"permissions,omitempty"`
	RequestPurpose   string   `json:"request_purpose,omitempty"`
	ExpirationPeriod int      `json:"expiration_period,omitempty"`
	NonExpirable     bool     `json:"non_expirable,omitempty"`
}

// Create handles POST /v1/shares.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	var req CreateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}
	if req.DatasetURI == "" || req.EnvironmentURI == "" || req.GroupURI == "" || req.PrincipalID == "" {
		BadRequest(w, "dataset_uri, environment_uri, group_uri and principal_id are required")
		return
	}

	share, err := h.service.CreateShare(r.Context(), principal, service.CreateShareInput{
		DatasetURI:        req.DatasetURI,
		EnvironmentURI:    req.EnvironmentURI,
		GroupURI:          req.GroupURI,
		PrincipalID:       req.PrincipalID,
		PrincipalType:     models.PrincipalType(req.PrincipalType),
		PrincipalRoleName: req.PrincipalRoleName,
		Permissions:       req.Permissions,
		RequestPurpose:    req.RequestPurpose,
		ExpirationPeriod:  req.ExpirationPeriod,
		NonExpirable:      req.NonExpirable,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONCreated(w, share)
}

// List handles GET /v1/shares. Results can be narrowed with the
// dataset_uri, environment_uri, group_uri and status query parameters.
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := principalFrom(w, r); !ok {
		return
	}

	q := r.URL.Query()
	shares, err := h.service.ListShares(r.Context(), store.ShareFilter{
		DatasetURI:     q.Get("dataset_uri"),
		EnvironmentURI: q.Get("environment_uri"),
		GroupURI:       q.Get("group_uri"),
		Status:         models.ShareObjectStatus(q.Get("status")),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONOK(w, shares)
}

// Get handles GET /v1/shares/{shareURI}. The share is returned with its
// items preloaded.
func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	if _, err := h.service.GetShare(r.Context(), principal, shareURI); err != nil {
		writeServiceError(w, r, err)
		return
	}

	share, err := h.service.Store().GetShareWithItems(r.Context(), shareURI)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONOK(w, share)
}

// Submit handles POST /v1/shares/{shareURI}/submit.
func (h *ShareHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.SubmitShare)
}

// Approve handles POST /v1/shares/{shareURI}/approve.
func (h *ShareHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ApproveShare)
}

// ReasonRequest carries the optional reason for reject style operations.
type ReasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Reject handles POST /v1/shares/{shareURI}/reject.
func (h *ShareHandler) Reject(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	var req ReasonRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid JSON body")
			return
		}
	}

	share, err := h.service.RejectShare(r.Context(), principal, shareURI, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONOK(w, share)
}

// RevokeRequest selects the items to revoke. An empty list revokes every
// item currently in a shared state.
type RevokeRequest struct {
	ItemURIs []string `json:"item_uris,omitempty"`
}

// Revoke handles POST /v1/shares/{shareURI}/revoke.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	var req RevokeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid JSON body")
			return
		}
	}

	share, err := h.service.RevokeItems(r.Context(), principal, shareURI, req.ItemURIs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONOK(w, share)
}

// Delete handles DELETE /v1/shares/{shareURI}. Shares with items still
// shared must be revoked first.
func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	if err := h.service.DeleteShare(r.Context(), principal, shareURI); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteNoContent(w)
}

// PurposeRequest is the body of PATCH /v1/shares/{shareURI}/purpose.
type PurposeRequest struct {
	RequestPurpose string `json:"request_purpose"`
}

// UpdatePurpose handles PATCH /v1/shares/{shareURI}/purpose.
func (h *ShareHandler) UpdatePurpose(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	var req PurposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}

	share, err := h.service.UpdateRequestPurpose(r.Context(), principal, shareURI, req.RequestPurpose)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONOK(w, share)
}

// ExtensionRequest is the body of POST /v1/shares/{shareURI}/extension.
type ExtensionRequest struct {
	Periods int    `json:"periods"`
	Reason  string `json:"reason,omitempty"`
}

// RequestExtension handles POST /v1/shares/{shareURI}/extension.
func (h *ShareHandler) RequestExtension(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	var req ExtensionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}
	if req.Periods <= 0 {
		BadRequest(w, "periods must be positive")
		return
	}

	share, err := h.service.RequestExtension(r.Context(), principal, shareURI, req.Periods, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONOK(w, share)
}

// ApproveExtension handles POST /v1/shares/{shareURI}/extension/approve.
func (h *ShareHandler) ApproveExtension(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.ApproveExtension)
}

// RejectExtension handles POST /v1/shares/{shareURI}/extension/reject.
func (h *ShareHandler) RejectExtension(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	var req ReasonRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid JSON body")
			return
		}
	}

	share, err := h.service.RejectExtension(r.Context(), principal, shareURI, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONOK(w, share)
}

// CancelExtension handles DELETE /v1/shares/{shareURI}/extension.
func (h *ShareHandler) CancelExtension(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CancelExtension)
}

// transition runs a principal+shareURI service operation and writes the
// updated share.
func (h *ShareHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, principal service.Principal, shareURI string) (*models.ShareObject, error)) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	share, err := op(r.Context(), principal, shareURI)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONOK(w, share)
}
