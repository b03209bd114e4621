package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.nbp.pl/api"
	DefaultTimeout = 10 * time.Second
)

// NBPClient fetches exchange rates from the National Bank of Poland API.
// Current quotes come from table C (bid/ask), historical series from
// table A (mid).
type NBPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewNBPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *NBPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &NBPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *NBPClient) CurrentTable(ctx context.Context) (*Table, error) {
	url := fmt.Sprintf("%s/exchangerates/tables/C/?format=json", c.baseURL)

	var tables []Table
	if err := c.getJSON(ctx, url, &tables); err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: empty table response", ErrProviderUnavailable)
	}
	return &tables[0], nil
}

func (c *NBPClient) HistoricalSeries(ctx context.Context, code string, start, end time.Time) ([]HistoricalRate, error) {
	url := fmt.Sprintf("%s/exchangerates/rates/A/%s/%s/%s/?format=json",
		c.baseURL, code, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var series struct {
		Code  string           `json:"code"`
		Rates []HistoricalRate `json:"rates"`
	}
	if err := c.getJSON(ctx, url, &series); err != nil {
		return nil, err
	}
	return series.Rates, nil
}

func (c *NBPClient) getJSON(ctx context.Context, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("rate source request failed", zap.String("url", url), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("rate source returned non-200", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: unexpected status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrProviderUnavailable, err)
	}
	return nil
}
