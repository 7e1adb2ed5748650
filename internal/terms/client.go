// Package terms fetches academic term dates from the campus Terms API.
package terms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"makertrends/internal/config"
	apperrors "makertrends/internal/errors"
	"makertrends/pkg/contracts/domain"
)

const (
	// CareerCode limits responses to the undergraduate career.
	CareerCode = "ugrd"
	userAgent  = "makertrends-terms-client/1.0"
	maxBody    = 1 << 20
)

// termResponse mirrors the parts of the Terms API payload that are used.
type termResponse struct {
	Response struct {
		Terms []struct {
			Name                string `json:"name"`
			FullyGradedDeadline string `json:"fullyGradedDeadline"`
			Sessions            []struct {
				BeginDate string `json:"beginDate"`
			} `json:"sessions"`
		} `json:"terms"`
	} `json:"response"`
}

// Client calls the Terms API with rate limiting.
type Client struct {
	baseURL string
	appID   string
	appKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a client from configuration.
func NewClient(cfg config.TermsAPIConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		appID:   cfg.AppID,
		appKey:  cfg.AppKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

// FetchTerm retrieves one term by ID.
func (c *Client) FetchTerm(ctx context.Context, termID string) (domain.Term, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Term{}, err
	}

	endpoint := fmt.Sprintf("%s/%s?career-code=%s", c.baseURL, url.PathEscape(termID), CareerCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Term{}, apperrors.NewNetworkError("failed to create request", err)
	}
	req.Header.Set("app_id", c.appID)
	req.Header.Set("app_key", c.appKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Term{}, apperrors.NewNetworkError("request failed for term "+termID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return domain.Term{}, apperrors.NewNetworkError("failed to read response", err)
	}

	c.logger.DebugContext(ctx, "Terms API response",
		slog.String("term_id", termID),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return domain.Term{}, apperrors.NewNetworkError(
			fmt.Sprintf("terms API returned status %d for term %s", resp.StatusCode, termID), nil).
			WithContext("status_code", resp.StatusCode)
	}

	return parseTerm(termID, body)
}

func parseTerm(termID string, body []byte) (domain.Term, error) {
	var payload termResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Term{}, apperrors.NewParsingError("failed to parse response for term "+termID, err)
	}

	if len(payload.Response.Terms) == 0 {
		return domain.Term{}, apperrors.NewParsingError("no UGRD term data for term "+termID, nil)
	}
	term := payload.Response.Terms[0]
	if term.Name == "" {
		return domain.Term{}, apperrors.NewParsingError("semester name missing for term "+termID, nil)
	}
	if len(term.Sessions) == 0 || term.Sessions[0].BeginDate == "" {
		return domain.Term{}, apperrors.NewParsingError("start date missing for term "+termID, nil)
	}
	if term.FullyGradedDeadline == "" {
		return domain.Term{}, apperrors.NewParsingError("end date missing for term "+termID, nil)
	}

	start, err := time.Parse(config.DateLayout, term.Sessions[0].BeginDate)
	if err != nil {
		return domain.Term{}, apperrors.NewParsingError("bad start date for term "+termID, err)
	}
	end, err := time.Parse(config.DateLayout, term.FullyGradedDeadline)
	if err != nil {
		return domain.Term{}, apperrors.NewParsingError("bad end date for term "+termID, err)
	}

	return domain.Term{ID: termID, Name: term.Name, Start: start, End: end}, nil
}

// FetchTerms retrieves every term in ids. A term that fails is logged and
// skipped; only context cancellation stops the loop.
func (c *Client) FetchTerms(ctx context.Context, ids []string) ([]domain.Term, error) {
	terms := make([]domain.Term, 0, len(ids))
	for _, id := range ids {
		term, err := c.FetchTerm(ctx, id)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return terms, ctxErr
		}
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping term",
				slog.String("term_id", id),
				slog.String("error", err.Error()))
			continue
		}
		c.logger.InfoContext(ctx, "Fetched term",
			slog.String("term_id", id),
			slog.String("name", term.Name),
			slog.String("start", term.Start.Format(config.DateLayout)),
			slog.String("end", term.End.Format(config.DateLayout)))
		terms = append(terms, term)
	}
	return terms, nil
}
