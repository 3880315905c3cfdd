package monitoring

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vapor/penny-bot/internal/config"
	"github.com/vapor/penny-bot/internal/models"
	"github.com/vapor/penny-bot/internal/notifications"
)

// Response outcomes recorded by RecordResponse
const (
	ResponseSent    = "sent"
	ResponseEdited  = "edited"
	ResponseForced  = "forced"
	ResponseDropped = "dropped"
	ResponseFailed  = "failed"
)

// Service tracks coin activity and reports it to operators
type Service struct {
	config              *config.Config
	notificationService notifications.NotificationInterface
	metrics             *Metrics
	period              *periodCounters
	mu                  sync.RWMutex
}

// Metrics holds lifetime counters since the process started
type Metrics struct {
	StartedAt      time.Time      `json:"started_at"`
	CoinsGiven     int            `json:"coins_given"`
	CoinAwards     int            `json:"coin_awards"`
	AwardFailures  int            `json:"award_failures"`
	Responses      map[string]int `json:"responses"`
	PingsSent      int            `json:"pings_sent"`
	LastReport     time.Time      `json:"last_report"`
	LastReportSent bool           `json:"last_report_sent"`
}

// periodCounters are reset after every report
type periodCounters struct {
	coinsGiven int
	failures   int
	receivers  map[string]int
}

func newPeriodCounters() *periodCounters {
	return &periodCounters{receivers: make(map[string]int)}
}

// NewService creates a new monitoring service
func NewService(cfg *config.Config, notificationService notifications.NotificationInterface) *Service {
	return &Service{
		config:              cfg,
		notificationService: notificationService,
		metrics: &Metrics{
			StartedAt: time.Now(),
			Responses: make(map[string]int),
		},
		period: newPeriodCounters(),
	}
}

// RecordCoins counts a successful coin award
func (s *Service) RecordCoins(receiverID string, amount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.CoinsGiven += amount
	s.metrics.CoinAwards++
	s.period.coinsGiven += amount
	s.period.receivers[receiverID] += amount
}

// RecordAwardFailure counts a failed call to the users service
func (s *Service) RecordAwardFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.AwardFailures++
	s.period.failures++
}

// RecordResponse counts a thanks or failure response by outcome
func (s *Service) RecordResponse(outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Responses[outcome]++
}

// RecordPings counts auto-ping DMs sent
func (s *Service) RecordPings(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.PingsSent += count
}

// Snapshot returns a copy of the current metrics
func (s *Service) Snapshot() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := *s.metrics
	snapshot.Responses = make(map[string]int, len(s.metrics.Responses))
	for outcome, count := range s.metrics.Responses {
		snapshot.Responses[outcome] = count
	}
	return snapshot
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	snapshot := s.Snapshot()
	data, _ := json.MarshalIndent(snapshot, "", "  ")
	return string(data)
}

// GenerateReport builds a report of the current period without resetting it
func (s *Service) GenerateReport() *models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := &models.Report{
		GeneratedAt: time.Now(),
		Period:      s.config.ReportSchedule,
		CoinsGiven:  s.period.coinsGiven,
		Failures:    s.period.failures,
		Summary:     make(map[string]interface{}),
	}

	report.Summary["top_receivers"] = topReceivers(s.period.receivers, 5)
	report.Summary["receivers"] = len(s.period.receivers)
	report.Summary["pings_sent"] = s.metrics.PingsSent

	return report
}

// RunReport sends the period report and starts a new period
func (s *Service) RunReport() error {
	start := time.Now()
	logrus.Info("Generating coin activity report")

	report := s.GenerateReport()
	err := s.notificationService.SendReport(report)

	s.mu.Lock()
	s.metrics.LastReport = time.Now()
	s.metrics.LastReportSent = err == nil
	if err == nil {
		s.period = newPeriodCounters()
	}
	s.mu.Unlock()

	if err != nil {
		logrus.Errorf("Failed to send report: %v", err)
		return fmt.Errorf("failed to send report: %w", err)
	}

	logrus.Infof("Report with %d coins sent in %v", report.CoinsGiven, time.Since(start))
	return nil
}

func topReceivers(receivers map[string]int, limit int) []string {
	type receiverScore struct {
		receiver string
		coins    int
	}

	scores := make([]receiverScore, 0, len(receivers))
	for receiver, coins := range receivers {
		scores = append(scores, receiverScore{receiver, coins})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].coins != scores[j].coins {
			return scores[i].coins > scores[j].coins
		}
		return scores[i].receiver < scores[j].receiver
	})

	var top []string
	for i, score := range scores {
		if i >= limit {
			break
		}
		top = append(top, fmt.Sprintf("%s (%d)", score.receiver, score.coins))
	}
	return top
}
