package devices

import "github.com/prometheus/client_golang/prometheus"

var (
	registrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boltin_device_registrations_total",
		Help: "Total number of successful device registrations.",
	})
	conflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boltin_device_conflicts_total",
		Help: "Total number of registrations rejected as duplicates.",
	})
	searchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "boltin_device_searches_total",
		Help: "Total number of registry search queries.",
	})
)

func init() {
	prometheus.MustRegister(registrationsTotal)
	prometheus.MustRegister(conflictsTotal)
	prometheus.MustRegister(searchesTotal)
}
