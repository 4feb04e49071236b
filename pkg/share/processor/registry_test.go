package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/lakegate/lakegate/pkg/share/models"
)

type stubProcessor struct {
	itemType models.ShareableType
}

func (s *stubProcessor) Type() models.ShareableType { return s.itemType }

func (s *stubProcessor) ProcessApprovedShares(ctx context.Context, share ShareContext, items []*models.ShareObjectItem) ([]ItemOutcome, error) {
	return nil, nil
}

func (s *stubProcessor) ProcessRevokedShares(ctx context.Context, share ShareContext, items []*models.ShareObjectItem) ([]ItemOutcome, error) {
	return nil, nil
}

func (s *stubProcessor) VerifyShares(ctx context.Context, share ShareContext, items []*models.ShareObjectItem) ([]ItemOutcome, error) {
	return nil, nil
}

func (s *stubProcessor) CleanupShares(ctx context.Context, share ShareContext) error {
	return nil
}

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(&stubProcessor{itemType: models.ShareableTypeTable}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		p, err := r.Get(models.ShareableTypeTable)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if p.Type() != models.ShareableTypeTable {
			t.Errorf("Type = %s, want Table", p.Type())
		}
	})

	t.Run("unknown type returns processor not found", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Get(models.ShareableTypeBucket)
		if !errors.Is(err, models.ErrProcessorNotFound) {
			t.Errorf("expected ErrProcessorNotFound, got %v", err)
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		r := NewRegistry()
		if err := r.Register(&stubProcessor{itemType: models.ShareableTypeTable}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if err := r.Register(&stubProcessor{itemType: models.ShareableTypeTable}); err == nil {
			t.Error("expected duplicate registration to fail")
		}
	})

	t.Run("register after seal fails", func(t *testing.T) {
		r := NewRegistry()
		r.Seal()
		if err := r.Register(&stubProcessor{itemType: models.ShareableTypeTable}); err == nil {
			t.Error("expected registration after Seal to fail")
		}
	})

	t.Run("types are stable", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&stubProcessor{itemType: models.ShareableTypeBucket})
		r.Register(&stubProcessor{itemType: models.ShareableTypeTable})

		types := r.Types()
		if len(types) != 2 {
			t.Fatalf("expected 2 types, got %d", len(types))
		}
		if types[0] != models.ShareableTypeBucket || types[1] != models.ShareableTypeTable {
			t.Errorf("unexpected order: %v", types)
		}
	})
}
