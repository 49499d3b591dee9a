// internal/translate/translator.go
// Package translate wraps the external translation collaborator. The engine
// treats it as an opaque synchronous call during sibling materialization.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"

	"jobcore/internal/common/config"
	"jobcore/internal/common/http"
)

var ErrTranslationUnavailable = errors.New("TRANSLATION_SERVICE_FAILED")

// Translator converts natural-language job content between languages.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// HTTPTranslator calls the translation service over HTTP.
type HTTPTranslator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPTranslator(cfg config.TranslationConfig) *HTTPTranslator {
	return &HTTPTranslator{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: http.NewClient(config.GetDuration(cfg.Timeout)),
	}
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate returns the translated text. Empty input short-circuits so sibling
// materialization never pays for blank fields.
func (t *HTTPTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if text == "" || sourceLang == targetLang {
		return text, nil
	}

	body, err := json.Marshal(translateRequest{
		Text:       text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrTranslationUnavailable, err)
	}

	req, err := nethttp.NewRequest(nethttp.MethodPost, t.baseURL+"/v1/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrTranslationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrTranslationUnavailable, resp.StatusCode)
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrTranslationUnavailable, err)
	}

	return out.TranslatedText, nil
}
