package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/models"
)

// ErrCoinServiceUnavailable wraps every failed call to the users service
var ErrCoinServiceUnavailable = errors.New("users service unavailable")

// Client talks to the users service over HTTP
type Client struct {
	client *resty.Client
}

// Ensure Client implements CoinService
var _ CoinService = (*Client)(nil)

// NewClient creates a users service client. Callers bound each call with
// their context; the client timeout is only a backstop.
func NewClient(baseURL, apiKey string) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "Penny/1.0")

	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &Client{client: client}
}

type createUserRequest struct {
	DiscordID string `json:"discord_id"`
}

// PostCoin moves coins from one user to another
func (c *Client) PostCoin(ctx context.Context, request models.CoinRequest) (*models.CoinResponse, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(request).
		Post("/coin")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to post coin: %v", ErrCoinServiceUnavailable, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: coin request returned status %d: %s",
			ErrCoinServiceUnavailable, resp.StatusCode(), string(resp.Body()))
	}

	var coinResponse models.CoinResponse
	if err := json.Unmarshal(resp.Body(), &coinResponse); err != nil {
		return nil, fmt.Errorf("failed to decode coin response: %w", err)
	}

	logrus.Debugf("Coin posted from %s to %s, receiver now has %d",
		request.FromUserID, request.ToUserID, coinResponse.NewCoinCount)
	return &coinResponse, nil
}

// GetOrCreateUser returns the user for a Discord ID, creating it if needed
func (c *Client) GetOrCreateUser(ctx context.Context, discordID string) (*models.User, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(createUserRequest{DiscordID: discordID}).
		Post("/users")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user: %v", ErrCoinServiceUnavailable, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: user request returned status %d: %s",
			ErrCoinServiceUnavailable, resp.StatusCode(), string(resp.Body()))
	}

	var user models.User
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	return &user, nil
}
