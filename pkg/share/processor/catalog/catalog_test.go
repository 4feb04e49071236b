package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/aws-sdk-go-v2/service/lakeformation"
	lftypes "github.com/aws/aws-sdk-go-v2/service/lakeformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ram"
	ramtypes "github.com/aws/aws-sdk-go-v2/service/ram/types"
	"github.com/aws/smithy-go"

	"github.com/lakegate/lakegate/pkg/share/awsclients"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/processor"
)

type apiError struct{ code string }

func (e apiError) Error() string                 { return e.code }
func (e apiError) ErrorCode() string             { return e.code }
func (e apiError) ErrorMessage() string          { return e.code }
func (e apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var _ smithy.APIError = apiError{}

type fakeGlue struct {
	databases map[string]bool
	tables    map[string]bool // database/table
}

func newFakeGlue() *fakeGlue {
	return &fakeGlue{databases: map[string]bool{}, tables: map[string]bool{}}
}

func (f *fakeGlue) GetDatabase(ctx context.Context, params *glue.GetDatabaseInput, optFns ...func(*glue.Options)) (*glue.GetDatabaseOutput, error) {
	if !f.databases[aws.ToString(params.Name)] {
		return nil, apiError{code: "EntityNotFoundException"}
	}
	return &glue.GetDatabaseOutput{}, nil
}

func (f *fakeGlue) CreateDatabase(ctx context.Context, params *glue.CreateDatabaseInput, optFns ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error) {
	name := aws.ToString(params.DatabaseInput.Name)
	if f.databases[name] {
		return nil, apiError{code: "AlreadyExistsException"}
	}
	f.databases[name] = true
	return &glue.CreateDatabaseOutput{}, nil
}

func (f *fakeGlue) DeleteDatabase(ctx context.Context, params *glue.DeleteDatabaseInput, optFns ...func(*glue.Options)) (*glue.DeleteDatabaseOutput, error) {
	name := aws.ToString(params.Name)
	if !f.databases[name] {
		return nil, apiError{code: "EntityNotFoundException"}
	}
	delete(f.databases, name)
	return &glue.DeleteDatabaseOutput{}, nil
}

func (f *fakeGlue) GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error) {
	key := aws.ToString(params.DatabaseName) + "/" + aws.ToString(params.Name)
	if !f.tables[key] {
		return nil, apiError{code: "EntityNotFoundException"}
	}
	return &glue.GetTableOutput{Table: &gluetypes.Table{Name: params.Name}}, nil
}

func (f *fakeGlue) CreateTable(ctx context.Context, params *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error) {
	key := aws.ToString(params.DatabaseName) + "/" + aws.ToString(params.TableInput.Name)
	if f.tables[key] {
		return nil, apiError{code: "AlreadyExistsException"}
	}
	f.tables[key] = true
	return &glue.CreateTableOutput{}, nil
}

func (f *fakeGlue) DeleteTable(ctx context.Context, params *glue.DeleteTableInput, optFns ...func(*glue.Options)) (*glue.DeleteTableOutput, error) {
	key := aws.ToString(params.DatabaseName) + "/" + aws.ToString(params.Name)
	if !f.tables[key] {
		return nil, apiError{code: "EntityNotFoundException"}
	}
	delete(f.tables, key)
	return &glue.DeleteTableOutput{}, nil
}

type fakeLF struct {
	grants map[string]bool // table/principal
}

func newFakeLF() *fakeLF {
	return &fakeLF{grants: map[string]bool{}}
}

func resourceName(resource *lftypes.Resource) string {
	if resource.DataCellsFilter != nil {
		return aws.ToString(resource.DataCellsFilter.TableName) + ":" + aws.ToString(resource.DataCellsFilter.Name)
	}
	return aws.ToString(resource.Table.Name)
}

func grantKey(resource *lftypes.Resource, principal *lftypes.DataLakePrincipal) string {
	return resourceName(resource) + "/" + aws.ToString(principal.DataLakePrincipalIdentifier)
}

func (f *fakeLF) GrantPermissions(ctx context.Context, params *lakeformation.GrantPermissionsInput, optFns ...func(*lakeformation.Options)) (*lakeformation.GrantPermissionsOutput, error) {
	f.grants[grantKey(params.Resource, params.Principal)] = true
	return &lakeformation.GrantPermissionsOutput{}, nil
}

func (f *fakeLF) RevokePermissions(ctx context.Context, params *lakeformation.RevokePermissionsInput, optFns ...func(*lakeformation.Options)) (*lakeformation.RevokePermissionsOutput, error) {
	key := grantKey(params.Resource, params.Principal)
	if !f.grants[key] {
		return nil, apiError{code: "InvalidInputException"}
	}
	delete(f.grants, key)
	return &lakeformation.RevokePermissionsOutput{}, nil
}

func (f *fakeLF) ListPermissions(ctx context.Context, params *lakeformation.ListPermissionsInput, optFns ...func(*lakeformation.Options)) (*lakeformation.ListPermissionsOutput, error) {
	table := resourceName(params.Resource)
	var out []lftypes.PrincipalResourcePermissions
	for key := range f.grants {
		if len(key) > len(table) && key[:len(table)] == table {
			principal := key[len(table)+1:]
			out = append(out, lftypes.PrincipalResourcePermissions{
				Principal: &lftypes.DataLakePrincipal{
					DataLakePrincipalIdentifier: aws.String(principal),
				},
			})
		}
	}
	return &lakeformation.ListPermissionsOutput{PrincipalResourcePermissions: out}, nil
}

type fakeRAM struct {
	pending  int
	accepted int
}

func (f *fakeRAM) GetResourceShareInvitations(ctx context.Context, params *ram.GetResourceShareInvitationsInput, optFns ...func(*ram.Options)) (*ram.GetResourceShareInvitationsOutput, error) {
	var invitations []ramtypes.ResourceShareInvitation
	for i := 0; i < f.pending; i++ {
		invitations = append(invitations, ramtypes.ResourceShareInvitation{
			ResourceShareInvitationArn: aws.String("arn:aws:ram::invitation"),
			Status:                     ramtypes.ResourceShareInvitationStatusPending,
		})
	}
	return &ram.GetResourceShareInvitationsOutput{ResourceShareInvitations: invitations}, nil
}

func (f *fakeRAM) AcceptResourceShareInvitation(ctx context.Context, params *ram.AcceptResourceShareInvitationInput, optFns ...func(*ram.Options)) (*ram.AcceptResourceShareInvitationOutput, error) {
	f.pending--
	f.accepted++
	return &ram.AcceptResourceShareInvitationOutput{}, nil
}

type fakeFactory struct {
	glue *fakeGlue
	lf   *fakeLF
	ram  *fakeRAM
}

func (f *fakeFactory) Glue(ctx context.Context, env *models.Environment) (awsclients.GlueClient, error) {
	return f.glue, nil
}

func (f *fakeFactory) LakeFormation(ctx context.Context, env *models.Environment) (awsclients.LakeFormationClient, error) {
	return f.lf, nil
}

func (f *fakeFactory) RAM(ctx context.Context, env *models.Environment) (awsclients.RAMClient, error) {
	return f.ram, nil
}

func (f *fakeFactory) S3(ctx context.Context, env *models.Environment) (awsclients.S3Client, error) {
	return nil, nil
}

func testShareContext() processor.ShareContext {
	return processor.ShareContext{
		Share:   &models.ShareObject{ShareURI: "share-1"},
		Dataset: &models.Dataset{GlueDatabaseName: "sales", S3BucketName: "sales-data"},
		SourceEnvironment: &models.Environment{
			EnvironmentURI: "env-src", AccountID: "111111111111", Region: "eu-west-1",
		},
		TargetEnvironment: &models.Environment{
			EnvironmentURI: "env-dst", AccountID: "222222222222", Region: "eu-west-1",
		},
		PrincipalRoleARN: "arn:aws:iam::222222222222:role/analytics",
	}
}

func testItem(uri, table string) *models.ShareObjectItem {
	return &models.ShareObjectItem{
		ShareItemURI: uri,
		ShareURI:     "share-1",
		ItemType:     models.ShareableTypeTable,
		ItemURI:      "table-" + table,
		ItemName:     table,
	}
}

func TestProcessApprovedShares(t *testing.T) {
	t.Run("grants and builds resource links", func(t *testing.T) {
		factory := &fakeFactory{glue: newFakeGlue(), lf: newFakeLF(), ram: &fakeRAM{pending: 1}}
		p := New(factory)
		share := testShareContext()
		items := []*models.ShareObjectItem{testItem("item-1", "orders")}

		outcomes, err := p.ProcessApprovedShares(context.Background(), share, items)
		if err != nil {
			t.Fatalf("ProcessApprovedShares failed: %v", err)
		}
		if len(outcomes) != 1 || !outcomes[0].Success {
			t.Fatalf("expected one successful outcome, got %+v", outcomes)
		}

		if !factory.lf.grants["orders/"+share.PrincipalRoleARN] {
			t.Error("expected Lake Formation grant on source table")
		}
		if !factory.glue.databases["sales_shared"] {
			t.Error("expected shared database in target account")
		}
		if !factory.glue.tables["sales_shared/orders"] {
			t.Error("expected resource link table in target account")
		}
		if factory.ram.accepted != 1 {
			t.Errorf("accepted invitations = %d, want 1", factory.ram.accepted)
		}
	})

	t.Run("re-running converges", func(t *testing.T) {
		factory := &fakeFactory{glue: newFakeGlue(), lf: newFakeLF(), ram: &fakeRAM{}}
		p := New(factory)
		items := []*models.ShareObjectItem{testItem("item-1", "orders")}

		for i := 0; i < 2; i++ {
			outcomes, err := p.ProcessApprovedShares(context.Background(), testShareContext(), items)
			if err != nil {
				t.Fatalf("ProcessApprovedShares failed: %v", err)
			}
			if !outcomes[0].Success {
				t.Fatalf("run %d failed: %+v", i, outcomes[0])
			}
		}
	})

	t.Run("filtered item grants through data cells filters", func(t *testing.T) {
		factory := &fakeFactory{glue: newFakeGlue(), lf: newFakeLF(), ram: &fakeRAM{}}
		p := New(factory)
		share := testShareContext()
		share.DataFilters = map[string]*models.ShareObjectItemDataFilter{
			"item-1": {
				AttachedDataFilterURI: "df-1",
				ShareItemURI:          "item-1",
				Label:                 "eu-only",
				DataFilterNames:       models.StringList{"eu_rows"},
			},
		}
		items := []*models.ShareObjectItem{testItem("item-1", "orders")}

		outcomes, err := p.ProcessApprovedShares(context.Background(), share, items)
		if err != nil {
			t.Fatalf("ProcessApprovedShares failed: %v", err)
		}
		if !outcomes[0].Success {
			t.Fatalf("expected success, got %+v", outcomes[0])
		}

		if factory.lf.grants["orders/"+share.PrincipalRoleARN] {
			t.Error("filtered item must not receive a full-table grant")
		}
		if !factory.lf.grants["orders:eu_rows/"+share.PrincipalRoleARN] {
			t.Error("expected grant through the data cells filter")
		}
		if !factory.glue.tables["sales_shared/orders"] {
			t.Error("expected resource link table in target account")
		}

		// Verify and revoke follow the same filter-scoped resource.
		verified, err := p.VerifyShares(context.Background(), share, items)
		if err != nil {
			t.Fatalf("VerifyShares failed: %v", err)
		}
		if !verified[0].Healthy {
			t.Errorf("filtered grant should verify healthy: %+v", verified[0])
		}

		if _, err := p.ProcessRevokedShares(context.Background(), share, items); err != nil {
			t.Fatalf("ProcessRevokedShares failed: %v", err)
		}
		if factory.lf.grants["orders:eu_rows/"+share.PrincipalRoleARN] {
			t.Error("expected filter grant to be revoked")
		}
	})

	t.Run("same account share is rejected", func(t *testing.T) {
		factory := &fakeFactory{glue: newFakeGlue(), lf: newFakeLF(), ram: &fakeRAM{}}
		p := New(factory)
		share := testShareContext()
		share.TargetEnvironment = share.SourceEnvironment

		_, err := p.ProcessApprovedShares(context.Background(), share, nil)
		if !errors.Is(err, models.ErrSameAccountShare) {
			t.Errorf("expected ErrSameAccountShare, got %v", err)
		}
	})
}

func TestProcessRevokedShares(t *testing.T) {
	factory := &fakeFactory{glue: newFakeGlue(), lf: newFakeLF(), ram: &fakeRAM{}}
	p := New(factory)
	ctx := context.Background()
	share := testShareContext()
	items := []*models.ShareObjectItem{testItem("item-1", "orders")}

	if _, err := p.ProcessApprovedShares(ctx, share, items); err != nil {
		t.Fatalf("ProcessApprovedShares failed: %v", err)
	}

	outcomes, err := p.ProcessRevokedShares(ctx, share, items)
	if err != nil {
		t.Fatalf("ProcessRevokedShares failed: %v", err)
	}
	if !outcomes[0].Success {
		t.Fatalf("expected revoke to succeed: %+v", outcomes[0])
	}

	if factory.lf.grants["orders/"+share.PrincipalRoleARN] {
		t.Error("expected Lake Formation grant to be revoked")
	}
	if factory.glue.tables["sales_shared/orders"] {
		t.Error("expected resource link to be deleted")
	}

	// Revoking again is a no-op, not an error.
	outcomes, err = p.ProcessRevokedShares(ctx, share, items)
	if err != nil {
		t.Fatalf("second ProcessRevokedShares failed: %v", err)
	}
	if !outcomes[0].Success {
		t.Errorf("repeated revoke must succeed: %+v", outcomes[0])
	}
}

func TestVerifyShares(t *testing.T) {
	factory := &fakeFactory{glue: newFakeGlue(), lf: newFakeLF(), ram: &fakeRAM{}}
	p := New(factory)
	ctx := context.Background()
	share := testShareContext()
	granted := testItem("item-1", "orders")
	drifted := testItem("item-2", "customers")

	if _, err := p.ProcessApprovedShares(ctx, share, []*models.ShareObjectItem{granted, drifted}); err != nil {
		t.Fatalf("ProcessApprovedShares failed: %v", err)
	}

	// Simulate out-of-band drift: someone dropped the resource link.
	delete(factory.glue.tables, "sales_shared/customers")

	outcomes, err := p.VerifyShares(ctx, share, []*models.ShareObjectItem{granted, drifted})
	if err != nil {
		t.Fatalf("VerifyShares failed: %v", err)
	}

	if !outcomes[0].Healthy {
		t.Errorf("intact item should be healthy: %+v", outcomes[0])
	}
	if outcomes[1].Healthy {
		t.Errorf("drifted item should be unhealthy: %+v", outcomes[1])
	}
	if outcomes[1].Message == "" {
		t.Error("unhealthy outcome needs a message")
	}
}

func TestCleanupShares(t *testing.T) {
	factory := &fakeFactory{glue: newFakeGlue(), lf: newFakeLF(), ram: &fakeRAM{}}
	p := New(factory)
	ctx := context.Background()
	share := testShareContext()
	items := []*models.ShareObjectItem{testItem("item-1", "orders")}

	if _, err := p.ProcessApprovedShares(ctx, share, items); err != nil {
		t.Fatalf("ProcessApprovedShares failed: %v", err)
	}
	if _, err := p.ProcessRevokedShares(ctx, share, items); err != nil {
		t.Fatalf("ProcessRevokedShares failed: %v", err)
	}

	if err := p.CleanupShares(ctx, share); err != nil {
		t.Fatalf("CleanupShares failed: %v", err)
	}
	if factory.glue.databases["sales_shared"] {
		t.Error("expected shared database to be removed")
	}

	// Cleanup with nothing left is a no-op.
	if err := p.CleanupShares(ctx, share); err != nil {
		t.Errorf("repeated CleanupShares failed: %v", err)
	}
}
