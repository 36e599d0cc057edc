package reports

import "github.com/prometheus/client_golang/prometheus"

var reportsFiledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "boltin_reports_filed_total",
	Help: "Total number of reports filed, by report type.",
}, []string{"type"})

func init() {
	prometheus.MustRegister(reportsFiledTotal)
}
