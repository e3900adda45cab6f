package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mergington/internal/types"
)

const sendGridBaseURL = "https://api.sendgrid.com/v3"

// SendGridClient delivers rendered messages through the SendGrid v3
// Mail Send API. It satisfies the EmailProvider interface.
type SendGridClient struct {
	*BaseClient
	apiKey  types.SecretString
	from    types.EmailIdentity
	baseURL string
	logger  types.Logger
}

var _ EmailProvider = (*SendGridClient)(nil)

// SendGridOption is a functional option for configuring a SendGridClient.
type SendGridOption func(*SendGridClient)

// WithSendGridBaseURL overrides the API base URL. Used in tests to point
// the client at an httptest server.
func WithSendGridBaseURL(url string) SendGridOption {
	return func(c *SendGridClient) {
		c.baseURL = url
	}
}

// NewSendGridClient constructs a SendGrid-backed EmailProvider.
func NewSendGridClient(
	apiKey types.SecretString,
	from types.EmailIdentity,
	timeout time.Duration,
	logger types.Logger,
	opts ...SendGridOption,
) *SendGridClient {
	c := &SendGridClient{
		BaseClient: NewBaseClient(
			&http.Client{Timeout: timeout},
			"sendgrid",
			DefaultRetryPolicy(),
			"mergington-activities/1.0",
		),
		apiKey:  apiKey,
		from:    from,
		baseURL: sendGridBaseURL,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client holds an API key.
func (c *SendGridClient) Configured() bool {
	return c.apiKey.Unmask() != ""
}

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
	Cc []sendGridAddress `json:"cc,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
	CustomArgs       map[string]string         `json:"custom_args,omitempty"`
}

// Send submits the message to the SendGrid Mail Send endpoint. On success
// it returns the provider message ID from the X-Message-Id header.
func (c *SendGridClient) Send(ctx context.Context, input types.SendInput) (string, error) {
	if len(input.To) == 0 {
		return "", types.NewAppError(
			types.ErrCodeValidationEmptyRecipients,
			"at least one recipient is required",
			nil,
		)
	}

	p := sendGridPersonalization{}
	for _, addr := range input.To {
		p.To = append(p.To, sendGridAddress{Email: addr})
	}
	if input.Cc != "" {
		p.Cc = append(p.Cc, sendGridAddress{Email: input.Cc})
	}

	payload := sendGridRequest{
		Personalizations: []sendGridPersonalization{p},
		From:             sendGridAddress{Email: input.From.Address, Name: input.From.Name},
		Subject:          input.Subject,
		Content: []sendGridContent{
			{Type: "text/html", Value: input.BodyHTML},
		},
	}
	if input.ReferenceID != "" {
		payload.CustomArgs = map[string]string{"reference_id": input.ReferenceID}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to marshal mail send request",
			err,
		)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/mail/send",
		bytes.NewReader(body),
	)
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to build mail send request",
			err,
		)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return resp.Header.Get("X-Message-Id"), nil
	case resp.StatusCode == http.StatusForbidden:
		return "", types.NewAppError(
			types.ErrCodeEmailBlocked,
			"mail provider rejected the send request",
			fmt.Errorf("sendgrid returned 403: %s", snippet(resp.Body)),
		)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", types.NewAppError(
			types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("mail provider rejected the request with status %d", resp.StatusCode),
			fmt.Errorf("sendgrid error body: %s", snippet(resp.Body)),
		)
	default:
		return "", types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("unexpected mail provider status %d", resp.StatusCode),
			nil,
		)
	}
}

// snippet reads at most 512 bytes of an error response body for logging.
func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(b)
}
