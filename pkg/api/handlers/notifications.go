package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lakegate/lakegate/pkg/share/store"
)

// NotificationHandler serves the per-user notification feed written by
// share lifecycle events.
type NotificationHandler struct {
	store *store.GORMStore
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(st *store.GORMStore) *NotificationHandler {
	return &NotificationHandler{store: st}
}

// List handles GET /v1/notifications. Notifications are addressed to
// groups, so results cover every group the caller belongs to. Pass
// unread=true to filter out read entries.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}

	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	var all []any
	for _, group := range principal.Groups {
		notifications, err := h.store.ListNotifications(r.Context(), group, unreadOnly)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		for _, n := range notifications {
			all = append(all, n)
		}
	}
	if all == nil {
		all = []any{}
	}

	WriteJSONOK(w, all)
}

// MarkRead handles POST /v1/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if _, ok := principalFrom(w, r); !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.store.MarkNotificationRead(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteNoContent(w)
}
