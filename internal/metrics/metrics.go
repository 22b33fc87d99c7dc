package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion
	IngestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campaign_vault_ingests_total",
		Help: "Campaign ingestions by outcome (ok or the failing stage)",
	}, []string{"outcome"})

	ContactsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaign_vault_contacts_ingested_total",
		Help: "Contacts persisted by successful ingestions",
	})

	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "campaign_vault_ingest_duration_seconds",
		Help:    "Time taken to ingest one CSV file",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	// Queries
	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaign_vault_searches_total",
		Help: "Contact searches served",
	})

	SearchScannedContacts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "campaign_vault_search_scanned_contacts",
		Help:    "Contacts decrypted per search",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	DecryptionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaign_vault_decryption_failures_total",
		Help: "Stored values that failed to decrypt",
	})

	CampaignsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campaign_vault_campaigns_deleted_total",
		Help: "Campaigns deleted",
	})
)

// Handler exposes the default registry to fiber.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
