// Package model holds the wire and domain types shared by the dashboard
// components.
package model

import (
	"time"

	"courtside/internal/price"
)

// Game is one row of the primary list. The dataset refresher owns the
// canonical slice and replaces it wholesale on every successful refresh.
type Game struct {
	ID           string    `json:"game_id"`
	League       string    `json:"league"`
	HomeTeam     string    `json:"home_team_name"`
	AwayTeam     string    `json:"away_team_name"`
	HomeAbbrev   string    `json:"home_team_abbrev"`
	AwayAbbrev   string    `json:"away_team_abbrev"`
	Status       string    `json:"status"`
	StartTime    time.Time `json:"start_time"`
	HomeWinProb  float64   `json:"home_win_prob"`
	MarketProb   float64   `json:"market_prob"`
	Divergence   float64   `json:"divergence"`
	Confidence   string    `json:"confidence_score"`
	HomeScore    int       `json:"home_score"`
	AwayScore    int       `json:"away_score"`
	MarketTicker string    `json:"market_ticker"`
}

// GameDetail is the enriched view of a single selected game.
type GameDetail struct {
	Game
	PredictionFactors map[string]float64 `json:"prediction_factors"`
	ModelVersion      string             `json:"model_version"`
	Narrative         string             `json:"narrative"`
	HomeRecord        string             `json:"home_record"`
	AwayRecord        string             `json:"away_record"`
}

// MarketSnapshot is one market entry from the push stream.
type MarketSnapshot struct {
	Ticker    string      `json:"ticker"`
	Title     string      `json:"title"`
	YesPrice  price.Price `json:"yes_price"`
	NoPrice   price.Price `json:"no_price"`
	LastPrice price.Price `json:"last_price"`
	Volume    int64       `json:"volume"`
}

// PricePoint is one observation in a ticker's price history.
type PricePoint struct {
	Time  time.Time   `json:"time"`
	Price price.Price `json:"price"`
}

// ContextQuery identifies the auxiliary data wanted for one game.
type ContextQuery struct {
	GameID   string
	League   string
	HomeTeam string
	AwayTeam string
}

// ContextRecord carries auxiliary per-game data (weather, injuries, news).
// The payloads are opaque to the coordination core.
type ContextRecord struct {
	GameID    string           `json:"game_id"`
	Weather   map[string]any   `json:"weather"`
	Injuries  []map[string]any `json:"injuries"`
	News      []map[string]any `json:"news"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Outcome is posted once per concluded game.
type Outcome struct {
	GameID    string `json:"game_id"`
	League    string `json:"league"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	HomeWon   bool   `json:"home_won"`
}
