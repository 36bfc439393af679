package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// AWSConfig configures the AWS-backed stores.
type AWSConfig struct {
	// Region overrides the region from the default credential chain.
	Region string
	// Endpoint overrides the service endpoint (e.g. LocalStack).
	Endpoint string
}

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SSMAPI is the subset of the SSM client used here.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWSSecretsManagerStore reads secret strings from AWS Secrets Manager.
type AWSSecretsManagerStore struct {
	client SecretsManagerAPI
}

// NewAWSSecretsManagerStore wraps an existing client.
func NewAWSSecretsManagerStore(client SecretsManagerAPI) *AWSSecretsManagerStore {
	return &AWSSecretsManagerStore{client: client}
}

// GetSecretValue fetches the secret string stored under name.
func (s *AWSSecretsManagerStore) GetSecretValue(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("error loading secret from secrets manager, %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("%w: %s", ErrNoSecretString, name)
	}
	return *out.SecretString, nil
}

// SSMParameterStore reads decrypted parameter values from AWS Systems Manager.
type SSMParameterStore struct {
	client SSMAPI
}

// NewSSMParameterStore wraps an existing client.
func NewSSMParameterStore(client SSMAPI) *SSMParameterStore {
	return &SSMParameterStore{client: client}
}

// GetSecretValue fetches the decrypted parameter stored under name.
func (s *SSMParameterStore) GetSecretValue(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return "", fmt.Errorf("error loading parameter from parameter store, %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("%w: %s", ErrNoSecretString, name)
	}
	return *out.Parameter.Value, nil
}

// loadAWSConfig resolves credentials through the default provider chain.
func loadAWSConfig(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func newSecretsManagerClient(awsCfg aws.Config, endpoint string) *secretsmanager.Client {
	return secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

func newSSMClient(awsCfg aws.Config, endpoint string) *ssm.Client {
	return ssm.NewFromConfig(awsCfg, func(o *ssm.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}
