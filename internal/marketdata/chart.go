package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/pkg/httputil"
	"github.com/wonny/aegis-momentum/pkg/logger"
)

// ChartProvider fetches daily bars from a chart JSON endpoint
// (/v8/finance/chart/{symbol}?period1=..&period2=..&interval=1d).
// ⭐ SSOT: 외부 시세 API 호출은 이 클라이언트에서만
type ChartProvider struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewChartProvider creates a chart client. Rate limiting and retry belong to httpClient.
func NewChartProvider(httpClient *httputil.Client, baseURL string, log *logger.Logger) *ChartProvider {
	return &ChartProvider{
		httpClient: httpClient,
		logger:     log.WithField("module", "chart"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// GetHistory fetches the bars of one instrument within [start, end]
func (c *ChartProvider) GetHistory(ctx context.Context, instrument contracts.Instrument, start, end time.Time) (contracts.PriceSeries, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", contracts.Day(start).Unix()))
	// period2 is exclusive
	params.Set("period2", fmt.Sprintf("%d", contracts.Day(end).AddDate(0, 0, 1).Unix()))
	params.Set("interval", "1d")

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(instrument.ID), params.Encode())

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return contracts.PriceSeries{}, fmt.Errorf("%w: %s", contracts.ErrInstrumentNotFound, instrument.ID)
		}
		return contracts.PriceSeries{}, fmt.Errorf("fetch chart %s: %w", instrument.ID, err)
	}

	if resp.Chart.Error != nil {
		return contracts.PriceSeries{}, fmt.Errorf("chart %s: %s: %s", instrument.ID, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return contracts.PriceSeries{}, fmt.Errorf("%w: %s", contracts.ErrInstrumentNotFound, instrument.ID)
	}

	series := parseChart(instrument, resp.Chart.Result[0])
	series = series.Between(start, end)

	c.logger.WithFields(map[string]interface{}{
		"instrument": instrument.ID,
		"count":      len(series.Bars),
	}).Debug("Fetched chart")

	return series, nil
}

// parseChart converts the column arrays into bars. Rows without a close are skipped.
func parseChart(instrument contracts.Instrument, r chartResult) contracts.PriceSeries {
	series := contracts.PriceSeries{Instrument: instrument}
	if len(r.Indicators.Quote) == 0 {
		return series
	}
	q := r.Indicators.Quote[0]

	var last time.Time
	for i, ts := range r.Timestamp {
		closePx := at(q.Close, i)
		if closePx <= 0 {
			continue
		}
		date := contracts.Day(time.Unix(ts, 0).UTC())
		// 장중 스냅샷이 같은 날짜로 한 번 더 올 수 있음
		if !last.IsZero() && !date.After(last) {
			continue
		}
		last = date

		bar := contracts.PriceBar{
			Date:  date,
			Open:  at(q.Open, i),
			High:  at(q.High, i),
			Low:   at(q.Low, i),
			Close: closePx,
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		series.Bars = append(series.Bars, bar)
	}
	return series
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}
