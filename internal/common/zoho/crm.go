// internal/common/zoho/crm.go
package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CRMClient talks to Zoho CRM. The dispatcher uses it to keep employer
// accounts in step with their posting activity.
type CRMClient struct {
	apiKey     string
	oauthToken string
	baseURL    string
	httpClient *http.Client
}

// Account mirrors the CRM's employer account record. Only the fields the
// dispatcher updates are mapped.
type Account struct {
	ID          string `json:"id,omitempty"`
	AccountName string `json:"Account_Name"`
	EmployerID  string `json:"Employer_Ref,omitempty"`
	ActiveJobs  int    `json:"Active_Jobs,omitempty"`
	TotalHires  int    `json:"Total_Hires,omitempty"`
	Source      string `json:"Lead_Source,omitempty"`
}

type writeResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(apiKey, oauthToken string) *CRMClient {
	return &CRMClient{
		apiKey:     apiKey,
		oauthToken: oauthToken,
		baseURL:    "https://www.zohoapis.com/crm/v3",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// UpsertAccount creates or updates the employer's account record.
func (c *CRMClient) UpsertAccount(ctx context.Context, account *Account) (string, error) {
	url := fmt.Sprintf("%s/Accounts/upsert", c.baseURL)

	payload := map[string]interface{}{
		"data":                 []Account{*account},
		"duplicate_check_fields": []string{"Employer_Ref"},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal account: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to upsert account (status %d): %s", resp.StatusCode, string(body))
	}

	var upsertResp writeResponse
	if err := json.Unmarshal(body, &upsertResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(upsertResp.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}

	if upsertResp.Data[0].Status != "success" {
		return "", fmt.Errorf("account upsert failed: %s", upsertResp.Data[0].Message)
	}

	return upsertResp.Data[0].Details.ID, nil
}

// GetAccount fetches an account record by CRM id.
func (c *CRMClient) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	url := fmt.Sprintf("%s/Accounts/%s", c.baseURL, accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get account (status %d): %s", resp.StatusCode, string(body))
	}

	var getResp struct {
		Data []Account `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&getResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(getResp.Data) == 0 {
		return nil, fmt.Errorf("account %s not found", accountID)
	}

	return &getResp.Data[0], nil
}
