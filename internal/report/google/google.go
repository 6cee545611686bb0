// Package google exports balance snapshots to a Google Sheets spreadsheet.
// Each export appends one row per member so the sheet keeps a history of how
// group balances evolved over time.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"divvy/internal/config"
	"divvy/internal/core"
	"divvy/internal/report"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ report.BalanceWriter = (*Client)(nil)

// NewFromConfig creates a Sheets client from the OAuth client and token
// credentials in cfg. The token is obtained once with the oauth-init tool and
// refreshed automatically afterwards.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	clientJSON, err := readCredential(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials: %w", err)
	}
	tokenJSON, err := readCredential(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	oauthCfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	svc, err := gsheet.NewService(ctx, goption.WithTokenSource(oauthCfg.TokenSource(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	sheetName := cfg.GoogleSheetName
	if sheetName == "" {
		sheetName = "Balances"
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func readCredential(inline, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read credential file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("no inline JSON or file path provided")
	}
}

// AppendBalances appends one row per member: timestamp, group, member name,
// net amount as a decimal string, currency, and status.
func (c *Client) AppendBalances(ctx context.Context, groupName string, balances []core.Balance) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(balances) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	values := make([][]any, 0, len(balances))
	for _, b := range balances {
		values = append(values, []any{
			now, groupName, b.Name, b.Net.String(), b.Currency, string(b.Status),
		})
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	vr := &gsheet.ValueRange{Values: values}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append balances to sheet %s: %w", c.sheetName, err)
	}
	return nil
}
