package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	quotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_quotes_total",
			Help: "Price computations by pricing path, product type and outcome",
		},
		[]string{"path", "product_type", "privileged", "result"},
	)

	strippedOverridesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_overrides_stripped_total",
			Help: "Override fields dropped from unprivileged requests",
		},
		[]string{"entry_point", "field"},
	)

	ruleSetReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_rule_set_reloads_total",
			Help: "Explicit rule set reloads by outcome",
		},
		[]string{"result"},
	)

	sheetFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_sheet_fetches_total",
			Help: "Spreadsheet rule lookups by where the rows came from",
		},
		[]string{"result"}, // memory, redis, source, stale, error
	)

	notificationEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inquiry_emails_total",
			Help: "Inquiry notification emails by recipient and outcome",
		},
		[]string{"recipient", "result"},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
