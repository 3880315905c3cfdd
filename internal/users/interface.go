package users

import (
	"context"

	"github.com/vapor/penny-bot/internal/models"
)

// CoinService is the users service that owns coin balances
type CoinService interface {
	PostCoin(ctx context.Context, request models.CoinRequest) (*models.CoinResponse, error)
	GetOrCreateUser(ctx context.Context, discordID string) (*models.User, error)
}
