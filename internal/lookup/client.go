// Package lookup calls the external identity provider on behalf of the
// browser, so the bot credential never leaves the server.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/psds-microservice/support-chat-service/internal/errs"
	"github.com/sethvargo/go-retry"
)

type Client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

// Fetcher — интерфейс для хендлера (подмена моком в тестах).
type Fetcher interface {
	FetchUser(ctx context.Context, id string) (json.RawMessage, error)
}

func NewClient(baseURL, botToken string) *Client {
	return &Client{
		baseURL:  baseURL,
		botToken: botToken,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// FetchUser возвращает JSON-объект пользователя апстрима как есть.
// Сетевые ошибки и 5xx ретраятся с экспоненциальной задержкой; 4xx —
// нет, апстрим уже дал окончательный ответ.
func (c *Client) FetchUser(ctx context.Context, id string) (json.RawMessage, error) {
	if c.botToken == "" {
		return nil, errs.ErrTokenMissing
	}
	var body json.RawMessage
	backoff := retry.WithMaxRetries(2, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+id, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bot "+c.botToken)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("upstream status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("upstream status %d: %s", resp.StatusCode, data)
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
