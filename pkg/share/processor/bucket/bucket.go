// Package bucket grants S3 bucket access by editing the bucket policy in
// the source account. Each share item owns one policy statement whose SID
// encodes the share and item URIs, so grant and revoke are idempotent and
// never touch statements owned by other shares.
package bucket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/lakegate/lakegate/internal/logger"
	"github.com/lakegate/lakegate/pkg/share/awsclients"
	"github.com/lakegate/lakegate/pkg/share/models"
	"github.com/lakegate/lakegate/pkg/share/processor"
)

const sidPrefix = "LakeGateShare"

// statementSID identifies the policy statement owned by one share item.
func statementSID(shareURI, itemURI string) string {
	return sidPrefix + "-" + shareURI + "-" + itemURI
}

// policyDocument keeps statements as raw JSON. Only statements whose SID
// carries the lakegate prefix are ever decoded or replaced; everything
// else (Condition, NotPrincipal, fields owned by other tools) round-trips
// byte for byte.
type policyDocument struct {
	Version   string            `json:"Version"`
	ID        string            `json:"Id,omitempty"`
	Statement []json.RawMessage `json:"Statement"`
}

// statementSIDOf extracts the SID of a raw statement, or "" when the
// statement has none or cannot be parsed.
func statementSIDOf(raw json.RawMessage) string {
	var s struct {
		Sid string `json:"Sid"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s.Sid
}

// Processor implements bucket shares.
type Processor struct {
	clients awsclients.Factory
}

// New returns a bucket processor using the given client factory.
func New(clients awsclients.Factory) *Processor {
	return &Processor{clients: clients}
}

func (p *Processor) Type() models.ShareableType {
	return models.ShareableTypeBucket
}

func (p *Processor) ProcessApprovedShares(ctx context.Context, share processor.ShareContext, items []*models.ShareObjectItem) ([]processor.ItemOutcome, error) {
	client, err := p.clients.S3(ctx, share.SourceEnvironment)
	if err != nil {
		return nil, fmt.Errorf("failed to build S3 client: %w", err)
	}

	outcomes := make([]processor.ItemOutcome, 0, len(items))
	for _, item := range items {
		err := p.grantItem(ctx, client, share, item)
		outcome := processor.ItemOutcome{ItemURI: item.ShareItemURI, Success: err == nil}
		if err != nil {
			outcome.Message = err.Error()
			logger.ErrorCtx(ctx, "bucket grant failed",
				logger.KeyItemURI, item.ShareItemURI,
				logger.KeyError, err.Error())
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (p *Processor) ProcessRevokedShares(ctx context.Context, share processor.ShareContext, items []*models.ShareObjectItem) ([]processor.ItemOutcome, error) {
	client, err := p.clients.S3(ctx, share.SourceEnvironment)
	if err != nil {
		return nil, fmt.Errorf("failed to build S3 client: %w", err)
	}

	outcomes := make([]processor.ItemOutcome, 0, len(items))
	for _, item := range items {
		err := p.revokeItem(ctx, client, share, item)
		outcome := processor.ItemOutcome{ItemURI: item.ShareItemURI, Success: err == nil}
		if err != nil {
			outcome.Message = err.Error()
			logger.ErrorCtx(ctx, "bucket revoke failed",
				logger.KeyItemURI, item.ShareItemURI,
				logger.KeyError, err.Error())
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (p *Processor) VerifyShares(ctx context.Context, share processor.ShareContext, items []*models.ShareObjectItem) ([]processor.ItemOutcome, error) {
	client, err := p.clients.S3(ctx, share.SourceEnvironment)
	if err != nil {
		return nil, fmt.Errorf("failed to build S3 client: %w", err)
	}

	doc, err := p.readPolicy(ctx, client, share.Dataset.S3BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket policy: %w", err)
	}
	var stmts []json.RawMessage
	if doc != nil {
		stmts = doc.Statement
	}

	outcomes := make([]processor.ItemOutcome, 0, len(items))
	for _, item := range items {
		sid := statementSID(share.Share.ShareURI, item.ShareItemURI)
		found := false
		for _, raw := range stmts {
			var st struct {
				Sid       string          `json:"Sid"`
				Principal json.RawMessage `json:"Principal"`
			}
			if err := json.Unmarshal(raw, &st); err != nil {
				continue
			}
			if st.Sid == sid && strings.Contains(string(st.Principal), share.PrincipalRoleARN) {
				found = true
				break
			}
		}
		outcome := processor.ItemOutcome{
			ItemURI: item.ShareItemURI,
			Success: true,
			Healthy: found,
		}
		if !found {
			outcome.Message = fmt.Sprintf("bucket policy statement %s missing or principal not granted", sid)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// CleanupShares drops every statement of the share from the bucket policy
// and deletes the policy entirely once no statements remain.
func (p *Processor) CleanupShares(ctx context.Context, share processor.ShareContext) error {
	client, err := p.clients.S3(ctx, share.SourceEnvironment)
	if err != nil {
		return fmt.Errorf("failed to build S3 client: %w", err)
	}

	bucket := share.Dataset.S3BucketName
	doc, err := p.readPolicy(ctx, client, bucket)
	if err != nil {
		return fmt.Errorf("failed to read bucket policy: %w", err)
	}
	if doc == nil {
		return nil
	}

	prefix := sidPrefix + "-" + share.Share.ShareURI + "-"
	kept := doc.Statement[:0]
	for _, st := range doc.Statement {
		if !strings.HasPrefix(statementSIDOf(st), prefix) {
			kept = append(kept, st)
		}
	}
	if len(kept) == len(doc.Statement) {
		return nil
	}
	doc.Statement = kept

	return p.writePolicy(ctx, client, bucket, doc)
}

func (p *Processor) grantItem(ctx context.Context, client awsclients.S3Client, share processor.ShareContext, item *models.ShareObjectItem) error {
	bucket := share.Dataset.S3BucketName
	doc, err := p.readPolicy(ctx, client, bucket)
	if err != nil {
		return fmt.Errorf("failed to read bucket policy: %w", err)
	}
	if doc == nil {
		doc = &policyDocument{Version: "2012-10-17"}
	}

	actions := []string{"s3:GetObject", "s3:ListBucket", "s3:GetBucketLocation"}
	if item.Permission == models.SharePermissionWrite || item.Permission == models.SharePermissionModify {
		actions = append(actions, "s3:PutObject", "s3:DeleteObject")
	}

	sid := statementSID(share.Share.ShareURI, item.ShareItemURI)
	statement, err := buildStatement(
		sid,
		share.PrincipalRoleARN,
		actions,
		[]string{
			"arn:aws:s3:::" + bucket,
			"arn:aws:s3:::" + bucket + "/*",
		},
	)
	if err != nil {
		return err
	}

	// Replace an existing statement with the same SID so re-runs converge.
	replaced := false
	for i, st := range doc.Statement {
		if statementSIDOf(st) == sid {
			doc.Statement[i] = statement
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Statement = append(doc.Statement, statement)
	}

	return p.writePolicy(ctx, client, bucket, doc)
}

func (p *Processor) revokeItem(ctx context.Context, client awsclients.S3Client, share processor.ShareContext, item *models.ShareObjectItem) error {
	bucket := share.Dataset.S3BucketName
	doc, err := p.readPolicy(ctx, client, bucket)
	if err != nil {
		return fmt.Errorf("failed to read bucket policy: %w", err)
	}
	if doc == nil {
		return nil
	}

	sid := statementSID(share.Share.ShareURI, item.ShareItemURI)
	kept := doc.Statement[:0]
	for _, st := range doc.Statement {
		if statementSIDOf(st) != sid {
			kept = append(kept, st)
		}
	}
	if len(kept) == len(doc.Statement) {
		return nil
	}
	doc.Statement = kept

	return p.writePolicy(ctx, client, bucket, doc)
}

// readPolicy returns nil when the bucket has no policy.
func (p *Processor) readPolicy(ctx context.Context, client awsclients.S3Client, bucket string) (*policyDocument, error) {
	out, err := client.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucketPolicy" {
			return nil, nil
		}
		return nil, err
	}

	var doc policyDocument
	if err := json.Unmarshal([]byte(aws.ToString(out.Policy)), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse bucket policy: %w", err)
	}
	return &doc, nil
}

func (p *Processor) writePolicy(ctx context.Context, client awsclients.S3Client, bucket string, doc *policyDocument) error {
	if len(doc.Statement) == 0 {
		_, err := client.DeleteBucketPolicy(ctx, &s3.DeleteBucketPolicyInput{
			Bucket: aws.String(bucket),
		})
		if err != nil {
			return fmt.Errorf("failed to delete bucket policy: %w", err)
		}
		return nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode bucket policy: %w", err)
	}
	_, err = client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(string(raw)),
	})
	if err != nil {
		return fmt.Errorf("failed to write bucket policy: %w", err)
	}
	return nil
}

func buildStatement(sid, principalARN string, actions, resources []string) (json.RawMessage, error) {
	raw, err := json.Marshal(map[string]any{
		"Sid":       sid,
		"Effect":    "Allow",
		"Principal": map[string]any{"AWS": principalARN},
		"Action":    actions,
		"Resource":  resources,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy statement: %w", err)
	}
	return raw, nil
}
