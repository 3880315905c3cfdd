package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vapor/penny-bot/internal/config"
	"github.com/vapor/penny-bot/internal/models"
	"github.com/vapor/penny-bot/internal/monitoring"
)

// TerminalNotificationService prints reports and saves them as JSON
type TerminalNotificationService struct{}

func (t *TerminalNotificationService) SendReport(report *models.Report) error {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("🪙 PENNY COIN REPORT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("📅 Period: %s\n", report.Period)
	fmt.Printf("🕒 Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("📈 Coins given: %d\n", report.CoinsGiven)
	fmt.Printf("⚠️  Failed awards: %d\n", report.Failures)

	if receivers, ok := report.Summary["top_receivers"].([]string); ok && len(receivers) > 0 {
		fmt.Println("\n🏆 Top receivers:")
		for i, receiver := range receivers {
			fmt.Printf("   %d. %s\n", i+1, receiver)
		}
	}

	if err := t.saveReportToFile(report); err != nil {
		fmt.Printf("\n⚠️  Warning: Could not save to file: %v\n", err)
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	return nil
}

func (t *TerminalNotificationService) saveReportToFile(report *models.Report) error {
	dir := "test_output"
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	timestamp := report.GeneratedAt.Format("2006-01-02_15-04-05")
	filename := filepath.Join(dir, fmt.Sprintf("penny_report_%s.json", timestamp))

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}

	fmt.Printf("\n💾 Report saved to: %s\n", filename)
	return nil
}

func main() {
	fmt.Println("🤖 Penny - Test Report Generator")
	fmt.Println("================================")

	cfg := &config.Config{ReportSchedule: "weekly"}
	service := monitoring.NewService(cfg, &TerminalNotificationService{})

	// Sample activity for one week
	awards := []struct {
		receiver string
		amount   int
	}{
		{"<@1029384756>", 1},
		{"<@1029384756>", 3},
		{"<@5647382910>", 1},
		{"<@5647382910>", 1},
		{"<@9988776655>", 1},
		{"<@1029384756>", 1},
		{"<@1122334455>", 3},
	}
	for _, award := range awards {
		service.RecordCoins(award.receiver, award.amount)
	}
	service.RecordAwardFailure()
	service.RecordResponse(monitoring.ResponseSent)
	service.RecordResponse(monitoring.ResponseEdited)
	service.RecordPings(4)

	fmt.Printf("\n📊 Generating report with %d sample awards...\n", len(awards))

	if err := service.RunReport(); err != nil {
		fmt.Printf("❌ Error sending report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Test report generation completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Check the 'test_output' directory for the saved JSON report")
	fmt.Println("   • Run 'go run ./cmd/test-scan' to try the coin scanner")
	fmt.Println("   • Run the full bot with 'go run ./cmd/bot'")
}
