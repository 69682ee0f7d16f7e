// 包 client 提供定价/行情协作方的轻量 HTTP 客户端。
// 引擎自身不做任何定价计算，持仓希腊字母、期权链与曲面采样点均由该协作方提供。
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wyfcoding/optionsrisk/internal/optionsrisk/domain"
)

// MarketDataClient 行情快照客户端。
type MarketDataClient struct {
	baseURL string
	client  *http.Client
}

// NewMarketDataClient 创建客户端。timeout <= 0 时取 10s。
func NewMarketDataClient(baseURL string, timeout time.Duration) *MarketDataClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MarketDataClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// envelope 协作方的统一响应包装（code/msg/data）。
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// get 发送 GET 请求并把 data 解码到 out。
func (c *MarketDataClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("marketdata %s: unexpected status %d", path, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("marketdata %s: decode response: %w", path, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("marketdata %s: code %d: %s", path, env.Code, env.Msg)
	}
	return json.Unmarshal(env.Data, out)
}

// FetchPositions 拉取账户的持仓希腊字母快照。
func (c *MarketDataClient) FetchPositions(ctx context.Context, accountID string) ([]domain.PositionGreeks, error) {
	var positions []domain.PositionGreeks
	q := url.Values{"account_id": {accountID}}
	if err := c.get(ctx, "/api/v1/positions/greeks", q, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// FetchChain 拉取标的的期权链快照。
func (c *MarketDataClient) FetchChain(ctx context.Context, symbol string) ([]domain.OptionsChainEntry, error) {
	var entries []domain.OptionsChainEntry
	q := url.Values{"symbol": {symbol}}
	if err := c.get(ctx, "/api/v1/options/chain", q, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// FetchSurface 拉取标的的隐含波动率曲面采样点。
func (c *MarketDataClient) FetchSurface(ctx context.Context, symbol string) ([]domain.IVSurfacePoint, error) {
	var points []domain.IVSurfacePoint
	q := url.Values{"symbol": {symbol}}
	if err := c.get(ctx, "/api/v1/options/surface", q, &points); err != nil {
		return nil, err
	}
	return points, nil
}
