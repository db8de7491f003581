// Package api is used to call the dashboard backend endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"courtside/internal/model"
	"courtside/pkg/httpclient"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func New(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// Games fetches the full game list for a league. Sorting is done
// server-side.
func (c *Client) Games(ctx context.Context, league, sortBy string) ([]model.Game, error) {
	q := url.Values{}
	q.Set("league", league)
	if sortBy != "" {
		q.Set("sort_by", sortBy)
	}

	games, err := httpclient.GetResource[[]model.Game](ctx, c.httpClient, c.baseURL, "/games?"+q.Encode(), []int{200})
	if err != nil {
		return nil, fmt.Errorf("couldn't get games: %w", err)
	}
	return games, nil
}

// GameDetail fetches the enriched record for a single game.
func (c *Client) GameDetail(ctx context.Context, id, league string) (*model.GameDetail, error) {
	q := url.Values{}
	q.Set("league", league)

	detail, err := httpclient.GetResource[*model.GameDetail](ctx, c.httpClient, c.baseURL, "/games/"+url.PathEscape(id)+"?"+q.Encode(), []int{200})
	if err != nil {
		return nil, fmt.Errorf("couldn't get game detail for %s: %w", id, err)
	}
	return detail, nil
}

// GameContext fetches auxiliary context data (weather, injuries, news) for
// one game from the slow enhanced endpoint.
func (c *Client) GameContext(ctx context.Context, query model.ContextQuery) (*model.ContextRecord, error) {
	q := url.Values{}
	q.Set("league", query.League)
	q.Set("home_team", query.HomeTeam)
	q.Set("away_team", query.AwayTeam)

	record, err := httpclient.GetResource[*model.ContextRecord](ctx, c.httpClient, c.baseURL, "/enhanced/games/"+url.PathEscape(query.GameID)+"/context?"+q.Encode(), []int{200})
	if err != nil {
		return nil, fmt.Errorf("couldn't get context for %s: %w", query.GameID, err)
	}
	return record, nil
}

type outcomeAck struct {
	Success bool `json:"success"`
}

// RecordOutcome posts the result of a concluded game to the accuracy
// tracker.
func (c *Client) RecordOutcome(ctx context.Context, outcome model.Outcome) error {
	ack, err := httpclient.PostResource[outcomeAck](ctx, c.httpClient, c.baseURL, "/accuracy/outcome", outcome, []int{200, 201})
	if err != nil {
		return fmt.Errorf("couldn't record outcome for %s: %w", outcome.GameID, err)
	}
	if !ack.Success {
		return fmt.Errorf("outcome for %s was not accepted", outcome.GameID)
	}
	return nil
}
