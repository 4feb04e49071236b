//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lakegate/lakegate/pkg/api/auth"
	"github.com/lakegate/lakegate/pkg/share/dispatch"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/processor"
	"github.com/lakegate/lakegate/pkg/share/service"
	"github.com/lakegate/lakegate/pkg/share/store"
)

// grantAllProcessor succeeds every operation. Run outcomes are covered by
// the service tests; here we only need the lifecycle to move.
type grantAllProcessor struct{}

func (grantAllProcessor) Type() models.ShareableType { return models.ShareableTypeBucket }

func (grantAllProcessor) ProcessApprovedShares(ctx context.Context, share processor.ShareContext, items []*models.ShareObjectItem) ([]processor.ItemOutcome, error) {
	return succeedAll(items), nil
}

func (grantAllProcessor) ProcessRevokedShares(ctx context.Context, share processor.ShareContext, items []*models.ShareObjectItem) ([]processor.ItemOutcome, error) {
	return succeedAll(items), nil
}

func (grantAllProcessor) VerifyShares(ctx context.Context, share processor.ShareContext, items []*models.ShareObjectItem) ([]processor.ItemOutcome, error) {
	outcomes := make([]processor.ItemOutcome, 0, len(items))
	for _, item := range items {
		outcomes = append(outcomes, processor.ItemOutcome{ItemURI: item.ShareItemURI, Healthy: true})
	}
	return outcomes, nil
}

func (grantAllProcessor) CleanupShares(ctx context.Context, share processor.ShareContext) error {
	return nil
}

func succeedAll(items []*models.ShareObjectItem) []processor.ItemOutcome {
	outcomes := make([]processor.ItemOutcome, 0, len(items))
	for _, item := range items {
		outcomes = append(outcomes, processor.ItemOutcome{ItemURI: item.ShareItemURI, Success: true})
	}
	return outcomes
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(ctx context.Context, handler, shareURI string) error { return nil }

var _ dispatch.Dispatcher = nopDispatcher{}

type apiHarness struct {
	router     http.Handler
	jwtService *auth.JWTService
	store      *store.GORMStore
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	registry := processor.NewRegistry()
	if err := registry.Register(grantAllProcessor{}); err != nil {
		t.Fatalf("failed to register processor: %v", err)
	}
	registry.Seal()

	svc := service.New(st, registry, nopDispatcher{}, service.Config{LockTTL: time.Minute})

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret: "test-secret-key-must-be-32-chars!",
	})
	if err != nil {
		t.Fatalf("failed to create JWT service: %v", err)
	}

	h := &apiHarness{
		router:     NewRouter(svc, jwtService),
		jwtService: jwtService,
		store:      st,
	}
	h.seed(t)
	return h
}

func (h *apiHarness) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if err := h.store.CreateEnvironment(ctx, &models.Environment{
		EnvironmentURI: "env-source",
		Name:           "data-platform",
		AccountID:      "111111111111",
		Region:         "eu-west-1",
	}); err != nil {
		t.Fatalf("failed to create source environment: %v", err)
	}
	if err := h.store.CreateEnvironment(ctx, &models.Environment{
		EnvironmentURI: "env-target",
		Name:           "analytics",
		AccountID:      "222222222222",
		Region:         "eu-west-1",
	}); err != nil {
		t.Fatalf("failed to create target environment: %v", err)
	}
	if err := h.store.CreateDataset(ctx, &models.Dataset{
		DatasetURI:     "ds-sales",
		Name:           "sales",
		EnvironmentURI: "env-source",
		AdminGroupURI:  "data-admins",
		S3BucketName:   "acme-sales",
		Region:         "eu-west-1",
	}); err != nil {
		t.Fatalf("failed to create dataset: %v", err)
	}
	if err := h.store.CreateEnvironmentGroup(ctx, &models.EnvironmentGroup{
		ID:             "eg-1",
		GroupURI:       "team-analytics",
		EnvironmentURI: "env-target",
		IAMRoleARN:     "arn:aws:iam::222222222222:role/team-analytics",
		IAMRoleName:    "team-analytics",
	}); err != nil {
		t.Fatalf("failed to create environment group: %v", err)
	}
}

func (h *apiHarness) token(t *testing.T, username string, groups ...string) string {
	t.Helper()
	pair, err := h.jwtService.GenerateTokenPair(auth.Identity{Username: username, Groups: groups})
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return pair.AccessToken
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) createShare(t *testing.T, token string) string {
	t.Helper()

	rec := h.do(t, http.MethodPost, "/v1/shares", token, map[string]any{
		"dataset_uri":     "ds-sales",
		"environment_uri": "env-target",
		"group_uri":       "team-analytics",
		"principal_id":    "team-analytics",
		"principal_type":  string(models.PrincipalTypeGroup),
		"request_purpose": "dashboards",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating share, got %d: %s", rec.Code, rec.Body.String())
	}

	var share models.ShareObject
	if err := json.Unmarshal(rec.Body.Bytes(), &share); err != nil {
		t.Fatalf("failed to decode share: %v", err)
	}
	if share.ShareURI == "" {
		t.Fatal("expected share_uri in response")
	}
	return share.ShareURI
}

func TestHealthEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from liveness, got %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/health/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from readiness, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSharesRequireAuthentication(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/v1/shares", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestShareLifecycleOverHTTP(t *testing.T) {
	h := newAPIHarness(t)
	requester := h.token(t, "alice", "team-analytics")
	approver := h.token(t, "bob", "data-admins")

	shareURI := h.createShare(t, requester)

	rec := h.do(t, http.MethodPost, "/v1/shares/"+shareURI+"/items", requester, map[string]any{
		"item_type": string(models.ShareableTypeBucket),
		"item_uri":  "bucket-1",
		"item_name": "acme-sales",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 adding item, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = h.do(t, http.MethodPost, "/v1/shares/"+shareURI+"/submit", requester, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 submitting, got %d: %s", rec.Code, rec.Body.String())
	}

	// The requester is not a dataset approver.
	rec = h.do(t, http.MethodPost, "/v1/shares/"+shareURI+"/approve", requester, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for requester approval, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected problem+json, got %s", ct)
	}

	rec = h.do(t, http.MethodPost, "/v1/shares/"+shareURI+"/approve", approver, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 approving, got %d: %s", rec.Code, rec.Body.String())
	}

	var share models.ShareObject
	if err := json.Unmarshal(rec.Body.Bytes(), &share); err != nil {
		t.Fatalf("failed to decode share: %v", err)
	}
	if share.Status != models.ShareObjectStatusApproved {
		t.Fatalf("expected Approved status, got %s", share.Status)
	}

	rec = h.do(t, http.MethodGet, "/v1/shares/"+shareURI, requester, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 getting share, got %d", rec.Code)
	}
	var withItems models.ShareObject
	if err := json.Unmarshal(rec.Body.Bytes(), &withItems); err != nil {
		t.Fatalf("failed to decode share: %v", err)
	}
	if len(withItems.Items) != 1 {
		t.Fatalf("expected 1 item preloaded, got %d", len(withItems.Items))
	}
}

func TestGetMissingShareReturnsNotFound(t *testing.T) {
	h := newAPIHarness(t)
	token := h.token(t, "alice", "team-analytics")

	rec := h.do(t, http.MethodGet, "/v1/shares/nope", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDuplicateShareReturnsConflict(t *testing.T) {
	h := newAPIHarness(t)
	token := h.token(t, "alice", "team-analytics")

	h.createShare(t, token)

	rec := h.do(t, http.MethodPost, "/v1/shares", token, map[string]any{
		"dataset_uri":     "ds-sales",
		"environment_uri": "env-target",
		"group_uri":       "team-analytics",
		"principal_id":    "team-analytics",
		"principal_type":  string(models.PrincipalTypeGroup),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate share, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListSharesFilterByStatus(t *testing.T) {
	h := newAPIHarness(t)
	token := h.token(t, "alice", "team-analytics")

	shareURI := h.createShare(t, token)

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/v1/shares?status=%s", models.ShareObjectStatusDraft), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing shares, got %d", rec.Code)
	}
	var shares []models.ShareObject
	if err := json.Unmarshal(rec.Body.Bytes(), &shares); err != nil {
		t.Fatalf("failed to decode shares: %v", err)
	}
	if len(shares) != 1 || shares[0].ShareURI != shareURI {
		t.Fatalf("expected the draft share in listing, got %+v", shares)
	}

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/v1/shares?status=%s", models.ShareObjectStatusProcessed), token, nil)
	var processed []models.ShareObject
	if err := json.Unmarshal(rec.Body.Bytes(), &processed); err != nil {
		t.Fatalf("failed to decode shares: %v", err)
	}
	if len(processed) != 0 {
		t.Fatalf("expected no processed shares, got %d", len(processed))
	}
}

func TestTokenRefresh(t *testing.T) {
	h := newAPIHarness(t)

	pair, err := h.jwtService.GenerateTokenPair(auth.Identity{Username: "alice", Groups: []string{"team-analytics"}})
	if err != nil {
		t.Fatalf("failed to generate tokens: %v", err)
	}

	rec := h.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 refreshing, got %d: %s", rec.Code, rec.Body.String())
	}

	var refreshed auth.TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &refreshed); err != nil {
		t.Fatalf("failed to decode token pair: %v", err)
	}
	if _, err := h.jwtService.ValidateAccessToken(refreshed.AccessToken); err != nil {
		t.Fatalf("expected valid refreshed access token: %v", err)
	}

	// An access token is not a refresh credential.
	rec = h.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{
		"refresh_token": pair.AccessToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access token, got %d", rec.Code)
	}
}
