package location

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resourceIdentifierTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathtemplate_location_resource_identifier_total",
			Help: "Total number of resource identifier resolutions",
		},
		[]string{"location", "status"}, // resolved or failed
	)

	registrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathtemplate_location_registrations_total",
			Help: "Total number of registrations handed to the registry server",
		},
		[]string{"location", "status"}, // sent or failed
	)

	registrationBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pathtemplate_location_registration_batch_size",
			Help:    "Number of registrations per request to the registry server",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		},
	)
)

const (
	statusResolved = "resolved"
	statusFailed   = "failed"
	statusSent     = "sent"
)
