// Package awsclients builds per-account AWS service clients. Every call a
// processor makes runs under the admin role of the environment it touches,
// assumed via STS from the orchestrator's base credentials.
package awsclients

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/lakeformation"
	"github.com/aws/aws-sdk-go-v2/service/ram"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/lakegate/lakegate/pkg/share/models"
)

// Factory hands out service clients scoped to an environment's account.
// Implementations cache assumed-role configs per role ARN.
type Factory interface {
	Glue(ctx context.Context, env *models.Environment) (GlueClient, error)
	LakeFormation(ctx context.Context, env *models.Environment) (LakeFormationClient, error)
	RAM(ctx context.Context, env *models.Environment) (RAMClient, error)
	S3(ctx context.Context, env *models.Environment) (S3Client, error)
}

// GlueClient is the slice of the Glue API the table processor needs.
type GlueClient interface {
	GetDatabase(ctx context.Context, params *glue.GetDatabaseInput, optFns ...func(*glue.Options)) (*glue.GetDatabaseOutput, error)
	CreateDatabase(ctx context.Context, params *glue.CreateDatabaseInput, optFns ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error)
	DeleteDatabase(ctx context.Context, params *glue.DeleteDatabaseInput, optFns ...func(*glue.Options)) (*glue.DeleteDatabaseOutput, error)
	GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
	CreateTable(ctx context.Context, params *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *glue.DeleteTableInput, optFns ...func(*glue.Options)) (*glue.DeleteTableOutput, error)
}

// LakeFormationClient is the slice of the Lake Formation API the table
// processor needs.
type LakeFormationClient interface {
	GrantPermissions(ctx context.Context, params *lakeformation.GrantPermissionsInput, optFns ...func(*lakeformation.Options)) (*lakeformation.GrantPermissionsOutput, error)
	RevokePermissions(ctx context.Context, params *lakeformation.RevokePermissionsInput, optFns ...func(*lakeformation.Options)) (*lakeformation.RevokePermissionsOutput, error)
	ListPermissions(ctx context.Context, params *lakeformation.ListPermissionsInput, optFns ...func(*lakeformation.Options)) (*lakeformation.ListPermissionsOutput, error)
}

// RAMClient accepts cross-account resource share invitations in the target
// account.
type RAMClient interface {
	GetResourceShareInvitations(ctx context.Context, params *ram.GetResourceShareInvitationsInput, optFns ...func(*ram.Options)) (*ram.GetResourceShareInvitationsOutput, error)
	AcceptResourceShareInvitation(ctx context.Context, params *ram.AcceptResourceShareInvitationInput, optFns ...func(*ram.Options)) (*ram.AcceptResourceShareInvitationOutput, error)
}

// S3Client is the slice of the S3 API the bucket processor needs.
type S3Client interface {
	GetBucketPolicy(ctx context.Context, params *s3.GetBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
	DeleteBucketPolicy(ctx context.Context, params *s3.DeleteBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketPolicyOutput, error)
}

// STSFactory is the default Factory. It assumes each environment's admin
// role from the base config and builds clients in the environment's region.
type STSFactory struct {
	base aws.Config
}

// NewSTSFactory loads the orchestrator's base AWS configuration.
func NewSTSFactory(ctx context.Context) (*STSFactory, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &STSFactory{base: cfg}, nil
}

// NewSTSFactoryFromConfig wraps an existing base config. Used in tests and
// when credentials are injected externally.
func NewSTSFactoryFromConfig(cfg aws.Config) *STSFactory {
	return &STSFactory{base: cfg}
}

func (f *STSFactory) configFor(env *models.Environment) aws.Config {
	cfg := f.base.Copy()
	cfg.Region = env.Region
	if env.AdminRoleARN != "" {
		stsClient := sts.NewFromConfig(f.base)
		cfg.Credentials = aws.NewCredentialsCache(
			stscreds.NewAssumeRoleProvider(stsClient, env.AdminRoleARN, func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = "lakegate-share"
			}),
		)
	}
	return cfg
}

func (f *STSFactory) Glue(ctx context.Context, env *models.Environment) (GlueClient, error) {
	return glue.NewFromConfig(f.configFor(env)), nil
}

func (f *STSFactory) LakeFormation(ctx context.Context, env *models.Environment) (LakeFormationClient, error) {
	return lakeformation.NewFromConfig(f.configFor(env)), nil
}

func (f *STSFactory) RAM(ctx context.Context, env *models.Environment) (RAMClient, error) {
	return ram.NewFromConfig(f.configFor(env)), nil
}

func (f *STSFactory) S3(ctx context.Context, env *models.Environment) (S3Client, error) {
	return s3.NewFromConfig(f.configFor(env)), nil
}
