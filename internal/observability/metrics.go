package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ledgerPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daycare_service",
		Subsystem: "persistence",
		Name:      "last_ledger_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent ledger write-through to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(ledgerPersistGauge)
}

// RecordLedgerPersisted updates the persistence watermark gauge.
func RecordLedgerPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	ledgerPersistGauge.Set(float64(ts.Unix()))
}
