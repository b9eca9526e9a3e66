package tools

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/markcheno/go-talib"

	"minerva/internal/domain/marketdata"
	"minerva/pkg/logger"
)

// PriceHistoryToolName is the identifier the role prompts reference.
const PriceHistoryToolName = "price_history"

const (
	smaShortPeriod = 20
	smaLongPeriod  = 50
	tradingDays    = 252
)

// NewPriceHistoryTool returns a tool that fetches the trailing daily candles
// for a ticker and summarizes them as trend statistics.
func NewPriceHistoryTool(provider marketdata.Provider, days int) Tool {
	log := logger.Get().With("tool", PriceHistoryToolName)

	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"ticker": map[string]interface{}{
				"type":        "string",
				"description": "Exchange ticker symbol, e.g. AAPL",
			},
		},
		"required": []string{"ticker"},
	}

	return New(PriceHistoryToolName, "Fetch recent daily price history and trend statistics for a ticker", schema,
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			ticker, _ := args["ticker"].(string)
			if strings.TrimSpace(ticker) == "" {
				return "", fmt.Errorf("price_history: ticker is required")
			}

			log.Debugf("Fetching %d days of history for %s", days, ticker)

			bars, err := provider.GetHistory(ctx, ticker, days)
			if err != nil {
				log.Warnf("History fetch failed for %s: %v", ticker, err)
				return "", fmt.Errorf("price_history: %w", err)
			}
			if len(bars) == 0 {
				return "", fmt.Errorf("price_history: no bars for %s", ticker)
			}

			return formatHistory(ticker, bars), nil
		})
}

// formatHistory renders window statistics plus the last few candles.
func formatHistory(ticker string, bars []marketdata.Bar) string {
	closes := make([]float64, len(bars))
	var totalVolume int64
	for i, b := range bars {
		closes[i] = b.Close
		totalVolume += b.Volume
	}

	first := bars[0]
	last := bars[len(bars)-1]
	changePct := 0.0
	if first.Close != 0 {
		changePct = (last.Close - first.Close) / first.Close * 100
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Price history for %s (%s to %s, %d trading days)\n",
		ticker, first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"), len(bars))
	fmt.Fprintf(&sb, "Window change: %.2f%% (%.2f -> %.2f)\n", changePct, first.Close, last.Close)
	fmt.Fprintf(&sb, "Window high: %.2f, low: %.2f\n", sliceMax(closes), sliceMin(closes))
	fmt.Fprintf(&sb, "Average daily volume: %s\n", humanize.Comma(totalVolume/int64(len(bars))))

	if len(closes) >= smaShortPeriod {
		sma := talib.Sma(closes, smaShortPeriod)
		fmt.Fprintf(&sb, "SMA%d: %.2f\n", smaShortPeriod, sma[len(sma)-1])
	}
	if len(closes) >= smaLongPeriod {
		sma := talib.Sma(closes, smaLongPeriod)
		fmt.Fprintf(&sb, "SMA%d: %.2f\n", smaLongPeriod, sma[len(sma)-1])
	}
	if vol, ok := annualizedVolatility(closes); ok {
		fmt.Fprintf(&sb, "Annualized volatility: %.1f%%\n", vol*100)
	}

	sb.WriteString("Most recent candles (date open high low close volume):\n")
	tail := bars
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
	}
	for _, b := range tail {
		fmt.Fprintf(&sb, "%s %.2f %.2f %.2f %.2f %s\n",
			b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, humanize.Comma(b.Volume))
	}

	return sb.String()
}

// annualizedVolatility is the stddev of daily log returns scaled to a year.
func annualizedVolatility(closes []float64) (float64, bool) {
	if len(closes) < 3 {
		return 0, false
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	if len(returns) < 2 {
		return 0, false
	}

	stddev := talib.StdDev(returns, len(returns), 1)
	return stddev[len(stddev)-1] * math.Sqrt(tradingDays), true
}

func sliceMax(vals []float64) float64 {
	max := vals[0]
	for _, v := range vals[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func sliceMin(vals []float64) float64 {
	min := vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
