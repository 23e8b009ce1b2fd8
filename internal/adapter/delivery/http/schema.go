package http

import (
	"time"

	"github.com/vadimbarashkov/short-links/internal/entity"
	"github.com/vadimbarashkov/short-links/internal/stats"
)

// urlRequest represents the structure for a request to shorten a URL.
type urlRequest struct {
	OriginalURL     string `json:"url" validate:"required,absurl"`
	ShortCode       string `json:"short_code" validate:"omitempty,shortcode"`
	ValidityMinutes *int   `json:"validity_minutes" validate:"omitempty,min=1,max=10080"`
}

// urlResponse represents the structure for a response containing shortened URL information.
type urlResponse struct {
	ID              string    `json:"id"`
	ShortCode       string    `json:"short_code"`
	ShortURL        string    `json:"short_url"`
	OriginalURL     string    `json:"original_url"`
	ValidityMinutes int       `json:"validity_minutes"`
	ClickCount      int64     `json:"click_count"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func toURLResponse(url *entity.URL, shortURL string) urlResponse {
	return urlResponse{
		ID:              url.ID,
		ShortCode:       url.ShortCode,
		ShortURL:        shortURL,
		OriginalURL:     url.OriginalURL,
		ValidityMinutes: url.ValidityMinutes,
		ClickCount:      url.ClickCount,
		CreatedAt:       url.CreatedAt,
		ExpiresAt:       url.ExpiresAt,
	}
}

// urlStatsResponse is a URL together with the metrics derived from it.
type urlStatsResponse struct {
	urlResponse
	IsExpired            bool    `json:"is_expired"`
	ClickRate            float64 `json:"click_rate"`
	TimeRemainingSeconds int64   `json:"time_remaining_seconds"`
	TimeRemaining        string  `json:"time_remaining"`
}

func toURLStatsResponse(s stats.URLStats, shortURL string) urlStatsResponse {
	return urlStatsResponse{
		urlResponse:          toURLResponse(s.URL, shortURL),
		IsExpired:            s.IsExpired,
		ClickRate:            s.ClickRate,
		TimeRemainingSeconds: int64(s.TimeRemaining / time.Second),
		TimeRemaining:        s.TimeRemainingText,
	}
}

type statsResponse struct {
	TotalURLs     int                `json:"total_urls"`
	ActiveURLs    int                `json:"active_urls"`
	ExpiredURLs   int                `json:"expired_urls"`
	TotalClicks   int64              `json:"total_clicks"`
	AverageClicks float64            `json:"average_clicks"`
	URLs          []urlStatsResponse `json:"urls"`
}
