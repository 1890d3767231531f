package market

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tycho-agent/tycho/internal/tools"
)

// RegisterTools adds the market data and recommendation tools to the
// registry. The buy/sell/hold tools produce recommendation strings
// only; no orders are ever placed.
func RegisterTools(reg *tools.Registry, client *Client) error {
	defs := []*tools.Tool{
		{
			Name:        "get_stock_data",
			Description: "Get comprehensive stock data including current price, historical performance, volume, and key financial metrics for detailed analysis.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{
						"type":        "string",
						"description": "The stock symbol to analyze (e.g., AAPL, TSLA, NVDA).",
					},
					"period": map[string]any{
						"type":        "string",
						"description": "Time period for historical data. Default is '1mo'.",
						"enum":        ValidPeriods,
					},
				},
				"required": []string{"symbol"},
			},
			Handler: handleStockData(client),
		},
		{
			Name:        "get_market_overview",
			Description: "Get current overview of major market indices (S&P 500, Dow Jones, NASDAQ) to understand overall market sentiment and conditions.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
			Handler: handleMarketOverview(client),
		},
		{
			Name:        "buy_stock",
			Description: "Generate a BUY recommendation for a stock after analysis.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{
						"type":        "string",
						"description": "The stock symbol to recommend buying.",
					},
					"quantity": map[string]any{
						"type":        "integer",
						"description": "Number of shares to recommend buying. Default is 1.",
						"minimum":     1,
					},
				},
				"required": []string{"symbol"},
			},
			Handler: handleBuy,
		},
		{
			Name:        "sell_stock",
			Description: "Generate a SELL recommendation for a stock after analysis.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{
						"type":        "string",
						"description": "The stock symbol to recommend selling.",
					},
					"quantity": map[string]any{
						"type":        "integer",
						"description": "Number of shares to recommend selling. Default is 1.",
						"minimum":     1,
					},
				},
				"required": []string{"symbol"},
			},
			Handler: handleSell,
		},
		{
			Name:        "hold_stock",
			Description: "Generate a HOLD recommendation for a stock after analysis.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{
						"type":        "string",
						"description": "The stock symbol to recommend holding.",
					},
					"reason": map[string]any{
						"type":        "string",
						"description": "Reason for the hold recommendation.",
					},
				},
				"required": []string{"symbol"},
			},
			Handler: handleHold,
		},
	}

	for _, t := range defs {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func handleStockData(client *Client) func(ctx context.Context, args map[string]any) (string, error) {
	return func(ctx context.Context, args map[string]any) (string, error) {
		symbol, _ := args["symbol"].(string)
		if symbol == "" {
			return "", fmt.Errorf("symbol is required")
		}

		period, _ := args["period"].(string)
		if period == "" {
			period = "1mo"
		}

		quote, err := client.History(ctx, symbol, period)
		if err != nil {
			return "", fmt.Errorf("retrieving stock data for %s: %w", symbol, err)
		}

		out, err := json.MarshalIndent(quote, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func handleMarketOverview(client *Client) func(ctx context.Context, args map[string]any) (string, error) {
	return func(ctx context.Context, args map[string]any) (string, error) {
		overview, err := client.Overview(ctx)
		if err != nil {
			return "", fmt.Errorf("retrieving market overview: %w", err)
		}

		out, err := json.MarshalIndent(overview, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func handleBuy(_ context.Context, args map[string]any) (string, error) {
	symbol, _ := args["symbol"].(string)
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	return fmt.Sprintf("RECOMMENDATION: BUY %d shares of %s", intArg(args, "quantity", 1), symbol), nil
}

func handleSell(_ context.Context, args map[string]any) (string, error) {
	symbol, _ := args["symbol"].(string)
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	return fmt.Sprintf("RECOMMENDATION: SELL %d shares of %s", intArg(args, "quantity", 1), symbol), nil
}

func handleHold(_ context.Context, args map[string]any) (string, error) {
	symbol, _ := args["symbol"].(string)
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	reason, _ := args["reason"].(string)
	if reason == "" {
		reason = "Based on current analysis"
	}
	return fmt.Sprintf("RECOMMENDATION: HOLD %s. Reason: %s", symbol, reason), nil
}

// intArg reads an integer argument, tolerating the float64 values JSON
// decoding produces.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
