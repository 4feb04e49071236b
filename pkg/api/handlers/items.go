package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/service"
)

// ItemHandler handles share item endpoints.
type ItemHandler struct {
	service *service.Service
}

// NewItemHandler creates a new item handler.
func NewItemHandler(svc *service.Service) *ItemHandler {
	return &ItemHandler{service: svc}
}

// AddItemRequest is the body of POST /v1/shares/{shareURI}/items.
type AddItemRequest struct {
	ItemType   string `json:"item_type"`
	ItemURI    string `json:"item_uri"`
	ItemName   string `json:"item_name"`
	Permission string `json:"permission,omitempty"`
}

// Add handles POST /v1/shares/{shareURI}/items.
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}
	if req.ItemType == "" || req.ItemURI == "" {
		BadRequest(w, "item_type and item_uri are required")
		return
	}

	item, err := h.service.AddItem(r.Context(), principal, shareURI, service.AddItemInput{
		ItemType:   models.ShareableType(req.ItemType),
		ItemURI:    req.ItemURI,
		ItemName:   req.ItemName,
		Permission: models.SharePermission(req.Permission),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONCreated(w, item)
}

// List handles GET /v1/shares/{shareURI}/items.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	if _, err := h.service.GetShare(r.Context(), principal, shareURI); err != nil {
		writeServiceError(w, r, err)
		return
	}

	items, err := h.service.Store().ListItems(r.Context(), shareURI)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONOK(w, items)
}

// Remove handles DELETE /v1/shares/{shareURI}/items/{itemURI}.
func (h *ItemHandler) Remove(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")
	itemURI := chi.URLParam(r, "itemURI")

	if err := h.service.RemoveItem(r.Context(), principal, shareURI, itemURI); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteNoContent(w)
}

// AttachFilterRequest is the body of POST .../items/{itemURI}/filter.
type AttachFilterRequest struct {
	Label           string   `json:"label"`
	DataFilterURIs  []string `json:"data_filter_uris"`
	DataFilterNames []string `json:"data_filter_names,omitempty"`
}

// AttachFilter handles POST /v1/shares/{shareURI}/items/{itemURI}/filter.
func (h *ItemHandler) AttachFilter(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")
	itemURI := chi.URLParam(r, "itemURI")

	var req AttachFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON body")
		return
	}
	if req.Label == "" || len(req.DataFilterURIs) == 0 {
		BadRequest(w, "label and data_filter_uris are required")
		return
	}

	filter, err := h.service.AttachDataFilter(r.Context(), principal, shareURI, itemURI, service.AttachDataFilterInput{
		Label:           req.Label,
		DataFilterURIs:  req.DataFilterURIs,
		DataFilterNames: req.DataFilterNames,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONCreated(w, filter)
}

// RemoveFilter handles DELETE /v1/shares/{shareURI}/items/{itemURI}/filter/{filterURI}.
func (h *ItemHandler) RemoveFilter(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")
	itemURI := chi.URLParam(r, "itemURI")
	filterURI := chi.URLParam(r, "filterURI")

	if err := h.service.RemoveDataFilter(r.Context(), principal, shareURI, itemURI, filterURI); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteNoContent(w)
}

// ReapplyDataset handles POST /v1/datasets/{datasetURI}/reapply. Every share
// of the dataset holding unhealthy items gets a remediation run.
func (h *ItemHandler) ReapplyDataset(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	datasetURI := chi.URLParam(r, "datasetURI")

	dispatched, err := h.service.ReapplyDataset(r.Context(), principal, datasetURI)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]any{
		"status":     "queued",
		"dispatched": dispatched,
	})
}

// ItemSelectionRequest selects items for verify and reapply operations.
// An empty list means every eligible item on the share.
type ItemSelectionRequest struct {
	ItemURIs []string `json:"item_uris,omitempty"`
}

// Verify handles POST /v1/shares/{shareURI}/verify. Selected items are
// queued for a verification run; results land in item health fields.
func (h *ItemHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.selection(w, r, h.service.VerifyItems)
}

// Reapply handles POST /v1/shares/{shareURI}/reapply.
func (h *ItemHandler) Reapply(w http.ResponseWriter, r *http.Request) {
	h.selection(w, r, h.service.ReapplyItems)
}

func (h *ItemHandler) selection(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, principal service.Principal, shareURI string, itemURIs []string) error) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	shareURI := chi.URLParam(r, "shareURI")

	var req ItemSelectionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid JSON body")
			return
		}
	}

	if err := op(r.Context(), principal, shareURI, req.ItemURIs); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
