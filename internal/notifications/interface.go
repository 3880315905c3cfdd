package notifications

import "github.com/vapor/penny-bot/internal/models"

// NotificationInterface defines the contract for operator notifications
type NotificationInterface interface {
	SendReport(report *models.Report) error
}
