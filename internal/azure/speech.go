// Package azure issues short-lived Azure Speech tokens so browsers can run
// speech-to-text and text-to-speech without holding the subscription key.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

const (
	moduleName    = "interviewer/azure"
	moduleVersion = "v1.0.0"

	// Speech tokens are valid for ten minutes.
	tokenLifetime = 10 * time.Minute
)

// ErrNotConfigured reports a missing speech key or region.
var ErrNotConfigured = errors.New("azure speech is not configured")

// Token is a speech authorization token scoped to one region.
type Token struct {
	Token     string    `json:"token"`
	Region    string    `json:"region"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenIssuer exchanges the subscription key for speech tokens.
type TokenIssuer struct {
	key      string
	region   string
	endpoint string
	pipeline runtime.Pipeline
	now      func() time.Time
}

// Options tweak the issuer; the zero value targets the public cloud.
type Options struct {
	// Endpoint overrides https://{region}.api.cognitive.microsoft.com.
	Endpoint  string
	Transport policy.Transporter
}

func NewTokenIssuer(key, region string, opts *Options) *TokenIssuer {
	if opts == nil {
		opts = &Options{}
	}
	endpoint := strings.TrimSuffix(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" && region != "" {
		endpoint = fmt.Sprintf("https://%s.api.cognitive.microsoft.com", region)
	}

	clientOpts := &policy.ClientOptions{}
	if opts.Transport != nil {
		clientOpts.Transport = opts.Transport
	}
	return &TokenIssuer{
		key:      strings.TrimSpace(key),
		region:   strings.TrimSpace(region),
		endpoint: endpoint,
		pipeline: runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{}, clientOpts),
		now:      time.Now,
	}
}

// Configured reports whether Issue can succeed at all.
func (i *TokenIssuer) Configured() bool {
	return i != nil && i.key != "" && i.region != ""
}

// Issue requests a fresh token from the regional STS endpoint.
func (i *TokenIssuer) Issue(ctx context.Context) (Token, error) {
	if !i.Configured() {
		return Token{}, ErrNotConfigured
	}

	req, err := runtime.NewRequest(ctx, http.MethodPost, i.endpoint+"/sts/v1.0/issueToken")
	if err != nil {
		return Token{}, fmt.Errorf("create token request: %w", err)
	}
	req.Raw().Header.Set("Ocp-Apim-Subscription-Key", i.key)
	req.Raw().Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issuedAt := i.now()
	resp, err := i.pipeline.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return Token{}, runtime.NewResponseError(resp)
	}
	body, err := runtime.Payload(resp)
	if err != nil {
		return Token{}, fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return Token{}, errors.New("azure returned an empty speech token")
	}
	return Token{
		Token:     token,
		Region:    i.region,
		ExpiresAt: issuedAt.Add(tokenLifetime).UTC(),
	}, nil
}
