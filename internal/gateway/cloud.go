package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shaiso/Courier/internal/domain"
)

// CloudClient — клиент Cloud API провайдера (шаблонные сообщения
// WhatsApp-семейства).
//
// Запрос уходит на {BaseURL}/{senderID}/messages с Bearer-токеном.
// Media в заголовке передаётся ссылкой на уже загруженный URL —
// клиент ничего не загружает сам.
type CloudClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// CloudConfig — конфигурация CloudClient.
type CloudConfig struct {
	// BaseURL — корень API провайдера, например
	// "https://graph.facebook.com/v19.0".
	BaseURL string

	// Token — access token для Authorization: Bearer.
	Token string

	// Client — HTTP-клиент (опционально). Таймауты отдельных запросов
	// задаются через ctx, поэтому клиент без собственного таймаута.
	Client *http.Client
}

// NewCloudClient создаёт CloudClient.
func NewCloudClient(cfg CloudConfig) *CloudClient {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &CloudClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  client,
	}
}

// --- Wire types ---

type templatePayload struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         templateBody `json:"template"`
}

type templateBody struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	Image    *mediaRef    `json:"image,omitempty"`
	Video    *mediaRef    `json:"video,omitempty"`
	Document *documentRef `json:"document,omitempty"`
}

type mediaRef struct {
	Link string `json:"link"`
}

type documentRef struct {
	Link     string `json:"link"`
	Filename string `json:"filename,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Subcode int    `json:"error_subcode"`
	} `json:"error"`
}

// Send отправляет шаблонное сообщение и возвращает ID, присвоенный
// шлюзом.
func (c *CloudClient) Send(ctx context.Context, req *SendRequest) (string, error) {
	payload := buildPayload(req)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, req.SenderID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSend, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrSend, err)
	}

	var parsed sendResponse
	// Тело может быть не-JSON (прокси, HTML-страница ошибки) —
	// классифицируем тогда по одному статусу.
	_ = json.Unmarshal(respBody, &parsed)

	if resp.StatusCode >= 400 {
		gwErr := &GatewayError{
			HTTPStatus: resp.StatusCode,
			Message:    truncate(string(respBody), 300),
		}
		if parsed.Error != nil {
			gwErr.ProviderCode = strconv.Itoa(parsed.Error.Code)
			gwErr.Message = parsed.Error.Message
		}
		return "", gwErr
	}

	if len(parsed.Messages) == 0 || parsed.Messages[0].ID == "" {
		return "", &GatewayError{
			HTTPStatus: resp.StatusCode,
			Message:    "response has no message id",
		}
	}

	return parsed.Messages[0].ID, nil
}

// buildPayload собирает тело запроса из SendRequest.
func buildPayload(req *SendRequest) *templatePayload {
	p := &templatePayload{
		MessagingProduct: "whatsapp",
		To:               req.Recipient,
		Type:             "template",
		Template: templateBody{
			Name:     req.TemplateName,
			Language: templateLanguage{Code: req.LanguageCode},
		},
	}

	if comp := headerComponent(req); comp != nil {
		p.Template.Components = append(p.Template.Components, *comp)
	}

	if len(req.BodyParameters) > 0 {
		comp := templateComponent{Type: "body"}
		for _, param := range req.BodyParameters {
			comp.Parameters = append(comp.Parameters, templateParameter{
				Type: "text",
				Text: param,
			})
		}
		p.Template.Components = append(p.Template.Components, comp)
	}

	return p
}

// headerComponent собирает header-компонент, если он задан.
func headerComponent(req *SendRequest) *templateComponent {
	h := req.Header
	if h == nil {
		return nil
	}

	comp := &templateComponent{Type: "header"}
	switch h.Format {
	case domain.HeaderFormatImage:
		comp.Parameters = append(comp.Parameters, templateParameter{
			Type:  "image",
			Image: &mediaRef{Link: h.MediaURL},
		})
	case domain.HeaderFormatVideo:
		comp.Parameters = append(comp.Parameters, templateParameter{
			Type:  "video",
			Video: &mediaRef{Link: h.MediaURL},
		})
	case domain.HeaderFormatDocument:
		comp.Parameters = append(comp.Parameters, templateParameter{
			Type:     "document",
			Document: &documentRef{Link: h.MediaURL, Filename: h.MediaName},
		})
	default:
		// TEXT-заголовок зашит в сам шаблон, параметры не нужны.
		return nil
	}
	return comp
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
