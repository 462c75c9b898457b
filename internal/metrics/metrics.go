// Package metrics provides Prometheus metrics for sshdeck.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every sshdeck metric.
const Namespace = "sshdeck"

// Label values for the result dimension.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Label values for the transfer direction dimension.
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// Outcome label values for profile saves.
const (
	SaveWritten   = "written"
	SaveUnchanged = "unchanged"
	SaveError     = "error"
)

var (
	// BuildInfo exposes the build version of the running binary.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "Build information for the running binary.",
	}, []string{"version", "go_version"})

	// ListingsTotal counts remote directory listings by result.
	ListingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "listings_total",
		Help:      "Remote directory listings by result.",
	}, []string{"result"})

	// TransfersTotal counts file transfers by direction and result.
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "transfers_total",
		Help:      "File transfers by direction and result.",
	}, []string{"direction", "result"})

	// TransferBytes totals the size hint of completed transfers.
	TransferBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "transfer_bytes_total",
		Help:      "Bytes moved by completed transfers, best effort.",
	}, []string{"direction"})

	// ProfileSavesTotal counts configuration saves by outcome.
	ProfileSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "profile_saves_total",
		Help:      "Connection profile saves by outcome.",
	}, []string{"outcome"})

	// SessionLaunchesTotal counts interactive session launches by result.
	SessionLaunchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "session_launches_total",
		Help:      "Interactive terminal session launches by result.",
	}, []string{"result"})
)

// SetBuildInfo records build information for the running binary.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}
