package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(buildInfo)
}

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "build_info",
		Help: "A constant metric with labels for version, commit and payment environment.",
	},
	[]string{"version", "commit", "payment_env"},
)

func SetBuildInfo(version, commit, paymentEnv string) {
	buildInfo.WithLabelValues(version, commit, paymentEnv).Set(1)
}
