//go:build integration

package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lakegate/lakegate/pkg/share/dispatch"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/processor"
	"github.com/lakegate/lakegate/pkg/share/service"
	"github.com/lakegate/lakegate/pkg/share/store"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, handler, shareURI string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, handler+":"+shareURI)
	return nil
}

func (d *recordingDispatcher) all() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func newTestStore(t *testing.T) *store.GORMStore {
	t.Helper()
	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedShare(t *testing.T, st *store.GORMStore, shareURI string, status models.ShareObjectStatus, expiry *time.Time) {
	t.Helper()
	if err := st.CreateShare(context.Background(), &models.ShareObject{
		ShareURI:       shareURI,
		DatasetURI:     "ds-1",
		EnvironmentURI: "env-target",
		GroupURI:       "team-analytics",
		PrincipalID:    "arn:aws:iam::222222222222:role/team-analytics",
		PrincipalType:  models.PrincipalTypeGroup,
		Status:         status,
		Owner:          "alice",
		ExpiryDate:     expiry,
	}); err != nil {
		t.Fatalf("failed to create share: %v", err)
	}
}

func seedItem(t *testing.T, st *store.GORMStore, shareURI, itemURI string, status models.ShareItemStatus, health models.ShareItemHealthStatus) {
	t.Helper()
	if err := st.CreateItem(context.Background(), &models.ShareObjectItem{
		ShareItemURI: itemURI,
		ShareURI:     shareURI,
		ItemType:     models.ShareableTypeBucket,
		ItemURI:      "bucket-" + itemURI,
		ItemName:     "bucket",
		Status:       status,
		HealthStatus: health,
	}); err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
}

func TestVerifierSweep(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedShare(t, st, "share-1", models.ShareObjectStatusProcessed, nil)
	seedItem(t, st, "share-1", "item-1", models.ShareItemStatusShareSucceeded, models.ShareItemHealthStatusHealthy)
	seedShare(t, st, "share-2", models.ShareObjectStatusDraft, nil)
	seedItem(t, st, "share-2", "item-2", models.ShareItemStatusPendingApproval, "")

	d := &recordingDispatcher{}
	verifier := NewVerifier(st, d, time.Hour)

	dispatched, err := verifier.RunOnce(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if dispatched != 1 {
		t.Fatalf("expected 1 dispatch, got %d", dispatched)
	}
	if calls := d.all(); len(calls) != 1 || calls[0] != dispatch.HandlerVerify+":share-1" {
		t.Fatalf("unexpected dispatches: %v", calls)
	}

	item, err := st.GetItem(ctx, "item-1")
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if item.HealthStatus != models.ShareItemHealthStatusPendingVerify {
		t.Errorf("expected PendingVerify, got %s", item.HealthStatus)
	}
}

func TestReapplierSweepSkipsHealthyShares(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedShare(t, st, "share-healthy", models.ShareObjectStatusProcessed, nil)
	seedItem(t, st, "share-healthy", "item-h", models.ShareItemStatusShareSucceeded, models.ShareItemHealthStatusHealthy)
	seedShare(t, st, "share-drifted", models.ShareObjectStatusProcessed, nil)
	seedItem(t, st, "share-drifted", "item-d", models.ShareItemStatusShareSucceeded, models.ShareItemHealthStatusUnhealthy)

	d := &recordingDispatcher{}
	reapplier := NewReapplier(st, d, time.Hour)

	dispatched, err := reapplier.RunOnce(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if dispatched != 1 {
		t.Fatalf("expected 1 dispatch, got %d", dispatched)
	}
	if calls := d.all(); len(calls) != 1 || calls[0] != dispatch.HandlerReapply+":share-drifted" {
		t.Fatalf("unexpected dispatches: %v", calls)
	}

	item, err := st.GetItem(ctx, "item-d")
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if item.HealthStatus != models.ShareItemHealthStatusPendingReApply {
		t.Errorf("expected PendingReApply, got %s", item.HealthStatus)
	}
}

func TestExpirerSweep(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-24 * time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)
	seedShare(t, st, "share-expired", models.ShareObjectStatusProcessed, &past)
	seedItem(t, st, "share-expired", "item-e", models.ShareItemStatusShareSucceeded, models.ShareItemHealthStatusHealthy)
	seedShare(t, st, "share-current", models.ShareObjectStatusProcessed, &future)
	seedItem(t, st, "share-current", "item-c", models.ShareItemStatusShareSucceeded, models.ShareItemHealthStatusHealthy)

	d := &recordingDispatcher{}
	registry := processor.NewRegistry()
	registry.Seal()
	svc := service.New(st, registry, d, service.Config{LockTTL: time.Minute})

	expirer := NewExpirer(svc, time.Hour)
	revoked, err := expirer.RunOnce(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected 1 expired share, got %d", revoked)
	}
	if calls := d.all(); len(calls) != 1 || calls[0] != dispatch.HandlerRevoke+":share-expired" {
		t.Fatalf("unexpected dispatches: %v", calls)
	}

	share, err := st.GetShare(ctx, "share-expired")
	if err != nil {
		t.Fatalf("failed to get share: %v", err)
	}
	if share.Status != models.ShareObjectStatusRevoked {
		t.Errorf("expected Revoked, got %s", share.Status)
	}
	item, err := st.GetItem(ctx, "item-e")
	if err != nil {
		t.Fatalf("failed to get item: %v", err)
	}
	if item.Status != models.ShareItemStatusRevokeApproved {
		t.Errorf("expected Revoke_Approved, got %s", item.Status)
	}

	current, err := st.GetShare(ctx, "share-current")
	if err != nil {
		t.Fatalf("failed to get share: %v", err)
	}
	if current.Status != models.ShareObjectStatusProcessed {
		t.Errorf("unexpired share must stay Processed, got %s", current.Status)
	}
}
