package businessflow

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/app/services"
	"github.com/amirphl/inox-pricing/pricing"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func referenceProvider(t *testing.T) *pricing.StaticRuleSetProvider {
	t.Helper()
	data, err := os.ReadFile("../config/pricing.json")
	require.NoError(t, err)
	rules, err := pricing.ParseRuleSet("pricing.json", data)
	require.NoError(t, err)
	return pricing.NewStaticRuleSetProvider(rules)
}

type failingProvider struct{ err error }

func (p failingProvider) Load(context.Context) (*pricing.RuleSet, error)   { return nil, p.err }
func (p failingProvider) Invalidate()                                      {}
func (p failingProvider) Reload(context.Context) (*pricing.RuleSet, error) { return nil, p.err }
func (p failingProvider) Fingerprint() string                              { return "" }

// scenarioB is two table tops, 45 day delivery, 50% in advance: 405 per table, 785 total.
func scenarioB() dto.OrderConfigurationRequest {
	return dto.OrderConfigurationRequest{
		ProductType:    "table_only",
		Quantity:       2,
		DeliveryDays:   45,
		AdvancePayment: "50",
	}
}

func allOverrides() dto.PricingOverrides {
	return dto.PricingOverrides{
		BasePriceOverride:          utils.ToPtr[float64](1),
		StartupDiscountOverride:    utils.ToPtr[float64](300),
		FirstOrderDiscountOverride: utils.ToPtr[float64](300),
		DeliverySurchargeOverride:  map[string]float64{"45": -400, "7": 10},
		BulkDiscountOverride:       utils.ToPtr[float64](999),
		AdvanceDiscountOverride:    utils.ToPtr[float64](400),
		CustomUnitAdjust:           utils.ToPtr[float64](-50),
		CustomLineAdjust:           utils.ToPtr[float64](-100),
	}
}

type sentEmail struct {
	to      string
	subject string
	body    string
}

// recordingNotifier records messages and fails for the recipients listed in failFor
type recordingNotifier struct {
	mu      sync.Mutex
	sent    []sentEmail
	failFor map[string]error
}

func (n *recordingNotifier) SendEmail(ctx context.Context, msg services.EmailMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failFor[msg.To]; ok {
		return err
	}
	n.sent = append(n.sent, sentEmail{to: msg.To, subject: msg.Subject, body: msg.HTMLBody})
	return nil
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, m := range n.sent {
		out[i] = m.to
	}
	return out
}

type stubCaptcha struct {
	id    string
	angle float64
}

func (c stubCaptcha) GenerateRotate(context.Context) (*services.RotateChallenge, error) {
	return &services.RotateChallenge{ID: c.id}, nil
}

func (c stubCaptcha) VerifyRotate(_ context.Context, id string, angle float64) bool {
	return id == c.id && angle == c.angle
}

// memorySheetSource serves fixed rows and can be told to fail
type memorySheetSource struct {
	mu    sync.Mutex
	rows  [][]string
	err   error
	reads int
}

func (s *memorySheetSource) Name() string { return "memory-sheet" }

func (s *memorySheetSource) Rows(context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (s *memorySheetSource) set(rows [][]string, err error) {
	s.mu.Lock()
	s.rows, s.err = rows, err
	s.mu.Unlock()
}

func (s *memorySheetSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func referenceSheetRows() [][]string {
	return [][]string{
		{"key", "value"},
		{"base:160x80", "990"},
		{"base:200x100", "1170"},
		{"base:table_only", "500"},
		{"base:all_in_one", "1000"},
		{"startup_discount", "25"},
		{"first_order:dimensioned", "50"},
		{"first_order:table_only", "30"},
		{"first_order:all_in_one", "50"},
		{"delivery:7", "75"},
		{"delivery:30", "0"},
		{"delivery:45", "10"},
		{"delivery:60", "25"},
		{"advance_percent:none", "0"},
		{"advance_percent:50", "3"},
		{"advance_percent:100", "5"},
		{"bulk_per_pair", "25"},
	}
}

var errSourceDown = errors.New("source down")

func testLogger() *zap.Logger { return zap.NewNop() }
