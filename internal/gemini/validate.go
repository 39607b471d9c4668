package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// CredentialKind categorizes a rejected premium credential.
type CredentialKind string

const (
	CredentialInvalid    CredentialKind = "invalid"
	CredentialPermission CredentialKind = "permission"
	CredentialQuota      CredentialKind = "quota"
	CredentialNetwork    CredentialKind = "network"
	CredentialUnknown    CredentialKind = "unknown"
)

// CredentialError is a validation failure. Message is shown to the user as
// is, so kinds must read differently.
type CredentialError struct {
	Kind    CredentialKind
	Message string
	Err     error
}

func (e *CredentialError) Error() string {
	return e.Message
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

type ValidatorOptions struct {
	Model      string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Validator checks a user-supplied API key with a minimal genai call against
// the premium image model.
type Validator struct {
	model      string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewValidator(opts ValidatorOptions) *Validator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	model := opts.Model
	if model == "" {
		model = DefaultPremiumImageModel
	}
	return &Validator{
		model:      model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiVersion: opts.APIVersion,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

func (v *Validator) ValidateCredential(ctx context.Context, candidate string) error {
	cfg := &genai.ClientConfig{
		APIKey:     candidate,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: v.httpClient,
	}
	if v.baseURL != "" {
		cfg.HTTPOptions.BaseURL = v.baseURL + "/"
	}
	if v.apiVersion != "" {
		cfg.HTTPOptions.APIVersion = v.apiVersion
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return &CredentialError{Kind: CredentialUnknown, Message: "Could not initialize the Gemini client.", Err: err}
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, v.model, genai.Text("hi"), nil)
	elapsed := time.Since(start)
	if err != nil {
		cerr := classifyError(err)
		v.logger.Info("credential validation failed", "kind", cerr.Kind, "dur_ms", elapsed.Milliseconds())
		return cerr
	}
	if resp == nil || len(resp.Candidates) == 0 {
		v.logger.Warn("credential validation returned empty response", "dur_ms", elapsed.Milliseconds())
		return &CredentialError{Kind: CredentialUnknown, Message: "Validation failed. Check your key."}
	}

	v.logger.Debug("credential validated", "model", v.model, "dur_ms", elapsed.Milliseconds())
	return nil
}

func classifyError(err error) *CredentialError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyAPIError(*apiErrPtr, err)
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "api key not valid"),
		strings.Contains(lower, "invalid api key"),
		strings.Contains(lower, "api_key_invalid"):
		return &CredentialError{Kind: CredentialInvalid, Message: "Invalid API Key. Please check and try again.", Err: err}
	case strings.Contains(lower, "permission denied"):
		return &CredentialError{Kind: CredentialPermission, Message: permissionMessage, Err: err}
	case strings.Contains(lower, "quota"),
		strings.Contains(lower, "resource exhausted"),
		strings.Contains(lower, "rate limit"):
		return &CredentialError{Kind: CredentialQuota, Message: quotaMessage, Err: err}
	case strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "timeout"),
		strings.Contains(lower, "dial"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "unreachable"):
		return &CredentialError{Kind: CredentialNetwork, Message: "Network error. Check your connection and try again.", Err: err}
	}
	return &CredentialError{Kind: CredentialUnknown, Message: "Validation failed. Check your key.", Err: err}
}

const (
	permissionMessage = "Permission denied. This key cannot use the Gemini 3 Pro image model (billing must be enabled)."
	quotaMessage      = "Quota exceeded for this key. Try again later or check your plan."
)

func classifyAPIError(apiErr genai.APIError, err error) *CredentialError {
	switch apiErr.Code {
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(apiErr.Message), "api key") {
			return &CredentialError{Kind: CredentialInvalid, Message: "Invalid API Key. Please check and try again.", Err: err}
		}
		return &CredentialError{Kind: CredentialInvalid, Message: "Bad request. The API key may be malformed.", Err: err}
	case http.StatusUnauthorized:
		return &CredentialError{Kind: CredentialInvalid, Message: "Invalid API Key. Please check and try again.", Err: err}
	case http.StatusForbidden:
		return &CredentialError{Kind: CredentialPermission, Message: permissionMessage, Err: err}
	case http.StatusNotFound:
		return &CredentialError{Kind: CredentialPermission, Message: "This key has no access to the premium model.", Err: err}
	case http.StatusTooManyRequests:
		return &CredentialError{Kind: CredentialQuota, Message: quotaMessage, Err: err}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &CredentialError{Kind: CredentialNetwork, Message: "Gemini API server error. Try again later.", Err: err}
	}
	msg := apiErr.Message
	if msg == "" {
		msg = "Validation failed. Check your key."
	}
	return &CredentialError{Kind: CredentialUnknown, Message: msg, Err: err}
}
