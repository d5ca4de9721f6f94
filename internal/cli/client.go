package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// HeaderResponse — media-заголовок шаблона из API.
type HeaderResponse struct {
	Format    string `json:"format"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaName string `json:"media_name,omitempty"`
}

// MessageResponse — сообщение из API.
type MessageResponse struct {
	ID                string          `json:"id"`
	BatchID           string          `json:"batch_id"`
	Recipient         string          `json:"recipient"`
	SenderID          string          `json:"sender_id"`
	TemplateName      string          `json:"template_name"`
	LanguageCode      string          `json:"language_code"`
	BodyParameters    []string        `json:"body_parameters,omitempty"`
	Header            *HeaderResponse `json:"header,omitempty"`
	ScheduledAtLocal  string          `json:"scheduled_at_local"`
	Timezone          string          `json:"timezone"`
	ScheduledAtUTC    string          `json:"scheduled_at_utc"`
	Status            string          `json:"status"`
	Attempts          int             `json:"attempts"`
	MaxAttempts       int             `json:"max_attempts"`
	ErrorDetail       map[string]any  `json:"error_detail,omitempty"`
	ExternalMessageID string          `json:"external_message_id,omitempty"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
	SentAt            string          `json:"sent_at,omitempty"`
}

// BatchResponse — результат приёма batch'а.
type BatchResponse struct {
	BatchID            string              `json:"batch_id"`
	ScheduledAtUTC     string              `json:"scheduled_at_utc"`
	Accepted           int                 `json:"accepted"`
	Rejected           int                 `json:"rejected"`
	RejectedRecipients []RejectedRecipient `json:"rejected_recipients,omitempty"`
}

// RejectedRecipient — отклонённый получатель с причиной.
type RejectedRecipient struct {
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
}

// BatchSummaryResponse — сводка по batch'у.
type BatchSummaryResponse struct {
	BatchID    string `json:"batch_id"`
	Total      int    `json:"total"`
	Pending    int    `json:"pending"`
	Processing int    `json:"processing"`
	Sent       int    `json:"sent"`
	Error      int    `json:"error"`
}

// --- Request types ---

// RecipientRequest — получатель в batch-запросе.
type RecipientRequest struct {
	Phone          string   `json:"phone"`
	BodyParameters []string `json:"body_parameters,omitempty"`
}

// CreateBatchRequest — планирование рассылки.
type CreateBatchRequest struct {
	SenderID       string             `json:"sender_id"`
	TemplateName   string             `json:"template_name"`
	LanguageCode   string             `json:"language_code"`
	BodyParameters []string           `json:"body_parameters,omitempty"`
	Header         *HeaderResponse    `json:"header,omitempty"`
	ScheduledAt    string             `json:"scheduled_at"`
	Timezone       string             `json:"timezone"`
	MaxAttempts    int                `json:"max_attempts,omitempty"`
	Recipients     []RecipientRequest `json:"recipients"`
}

// ListMessagesOpts — параметры фильтрации сообщений.
type ListMessagesOpts struct {
	BatchID string
	Status  string
	Limit   int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Courier API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Batches ---

// CreateBatch планирует рассылку.
func (c *Client) CreateBatch(req CreateBatchRequest) (*BatchResponse, error) {
	var batch BatchResponse
	err := c.post("/api/v1/batches", req, &batch)
	return &batch, err
}

// GetBatchSummary возвращает сводку по batch'у.
func (c *Client) GetBatchSummary(id string) (*BatchSummaryResponse, error) {
	var summary BatchSummaryResponse
	err := c.get("/api/v1/batches/"+id, &summary)
	return &summary, err
}

// ListBatchMessages возвращает сообщения batch'а.
func (c *Client) ListBatchMessages(id string) ([]MessageResponse, error) {
	var messages []MessageResponse
	err := c.list("/api/v1/batches/"+id+"/messages", nil, &messages)
	return messages, err
}

// --- Messages ---

// ListMessages возвращает список сообщений с фильтрацией.
func (c *Client) ListMessages(opts ListMessagesOpts) ([]MessageResponse, error) {
	params := url.Values{}
	if opts.BatchID != "" {
		params.Set("batch_id", opts.BatchID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var messages []MessageResponse
	err := c.list("/api/v1/messages", params, &messages)
	return messages, err
}

// GetMessage возвращает сообщение по ID.
func (c *Client) GetMessage(id string) (*MessageResponse, error) {
	var msg MessageResponse
	err := c.get("/api/v1/messages/"+id, &msg)
	return &msg, err
}

// RequeueMessage возвращает ERROR-сообщение в очередь на отправку.
func (c *Client) RequeueMessage(id string) (*MessageResponse, error) {
	var msg MessageResponse
	err := c.post("/api/v1/messages/"+id+"/requeue", nil, &msg)
	return &msg, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
