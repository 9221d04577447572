package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// fakeSSMClient serves GetParameters from a map and records each batch.
type fakeSSMClient struct {
	params  map[string]string
	err     error
	batches [][]string
}

func (c *fakeSSMClient) GetParameters(_ context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	c.batches = append(c.batches, append([]string(nil), in.Names...))
	if c.err != nil {
		return nil, c.err
	}
	if in.WithDecryption == nil || !*in.WithDecryption {
		return nil, errors.New("decryption not requested")
	}

	out := &ssm.GetParametersOutput{}
	for _, name := range in.Names {
		if v, ok := c.params[name]; ok {
			out.Parameters = append(out.Parameters, ssmtypes.Parameter{Name: aws.String(name), Value: aws.String(v)})
		} else {
			out.InvalidParameters = append(out.InvalidParameters, name)
		}
	}
	return out, nil
}

func TestSSMProviderSatisfiesSecretProvider(t *testing.T) {
	var _ SecretProvider = (*SSMProvider)(nil)
	var _ SecretProvider = NewSSMProvider("us-east-1", "")
}

func TestSSMProviderEmptyKeysSkipsClient(t *testing.T) {
	// No client and no AWS config needed for an empty request.
	provider := NewSSMProvider("us-east-1", "")
	result, err := provider.GetParametersBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetParametersBatch returned error: %v", err)
	}
	if result == nil || len(result) != 0 {
		t.Errorf("expected empty non-nil map, got %v", result)
	}
	if provider.client != nil {
		t.Error("client should not be created for an empty request")
	}
}

func TestSSMProviderResolves(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{
		"/prod/zbxrelay/collector/auth_key": "s3cret",
	}}
	provider := newSSMProviderWithClient("us-east-1", client)

	result, err := provider.GetParametersBatch(context.Background(), []string{"/prod/zbxrelay/collector/auth_key"})
	if err != nil {
		t.Fatalf("GetParametersBatch returned error: %v", err)
	}
	if got := result["/prod/zbxrelay/collector/auth_key"]; got != "s3cret" {
		t.Errorf("resolved value = %q, want s3cret", got)
	}
}

func TestSSMProviderBatchesOfTen(t *testing.T) {
	params := make(map[string]string)
	keys := make([]string, 0, 23)
	for i := 0; i < 23; i++ {
		k := fmt.Sprintf("/prod/param/%02d", i)
		params[k] = fmt.Sprintf("v%d", i)
		keys = append(keys, k)
	}
	client := &fakeSSMClient{params: params}

	result, err := newSSMProviderWithClient("us-east-1", client).GetParametersBatch(context.Background(), keys)
	if err != nil {
		t.Fatalf("GetParametersBatch returned error: %v", err)
	}
	if len(result) != 23 {
		t.Errorf("resolved %d parameters, want 23", len(result))
	}

	wantSizes := []int{10, 10, 3}
	if len(client.batches) != len(wantSizes) {
		t.Fatalf("made %d calls, want %d", len(client.batches), len(wantSizes))
	}
	for i, size := range wantSizes {
		if len(client.batches[i]) != size {
			t.Errorf("batch %d has %d keys, want %d", i, len(client.batches[i]), size)
		}
	}
}

func TestSSMProviderInvalidParameters(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{}}

	_, err := newSSMProviderWithClient("us-east-1", client).
		GetParametersBatch(context.Background(), []string{"/prod/missing"})
	if err == nil || !strings.Contains(err.Error(), "/prod/missing") {
		t.Fatalf("expected not-found error naming the parameter, got %v", err)
	}
}

func TestSSMProviderClientError(t *testing.T) {
	client := &fakeSSMClient{err: errors.New("AccessDenied")}

	_, err := newSSMProviderWithClient("us-east-1", client).
		GetParametersBatch(context.Background(), []string{"/prod/key"})
	if err == nil || !strings.Contains(err.Error(), "AccessDenied") {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestSSMProviderContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeSSMClient{}
	_, err := newSSMProviderWithClient("us-east-1", client).GetParametersBatch(ctx, []string{"/prod/key"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(client.batches) != 0 {
		t.Error("no SSM call should be made after cancellation")
	}
}

func TestNewSSMProviderStoresSettings(t *testing.T) {
	provider := NewSSMProvider("eu-west-1", "http://localhost:4566")
	if provider.region != "eu-west-1" {
		t.Errorf("provider.region = %q, want %q", provider.region, "eu-west-1")
	}
	if provider.endpointURL != "http://localhost:4566" {
		t.Errorf("provider.endpointURL = %q, want LocalStack URL", provider.endpointURL)
	}
}
