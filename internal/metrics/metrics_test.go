package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetBuildInfo(t *testing.T) {
	BuildInfo.Reset()

	SetBuildInfo("v1.0.0", "go1.24")

	count := testutil.CollectAndCount(BuildInfo)
	if count != 1 {
		t.Errorf("expected 1 metric, got %d", count)
	}

	value := testutil.ToFloat64(BuildInfo.WithLabelValues("v1.0.0", "go1.24"))
	if value != 1 {
		t.Errorf("expected value 1, got %f", value)
	}
}

func TestListingMetrics(t *testing.T) {
	ListingsTotal.Reset()

	ListingsTotal.WithLabelValues(ResultSuccess).Inc()
	ListingsTotal.WithLabelValues(ResultSuccess).Inc()
	ListingsTotal.WithLabelValues(ResultError).Inc()

	if got := testutil.ToFloat64(ListingsTotal.WithLabelValues(ResultSuccess)); got != 2 {
		t.Errorf("expected 2 successful listings, got %f", got)
	}
	if got := testutil.ToFloat64(ListingsTotal.WithLabelValues(ResultError)); got != 1 {
		t.Errorf("expected 1 failed listing, got %f", got)
	}
}

func TestTransferMetrics(t *testing.T) {
	TransfersTotal.Reset()
	TransferBytes.Reset()

	TransfersTotal.WithLabelValues(DirectionDownload, ResultSuccess).Inc()
	TransfersTotal.WithLabelValues(DirectionUpload, ResultError).Inc()
	TransferBytes.WithLabelValues(DirectionDownload).Add(1024)

	if got := testutil.ToFloat64(TransfersTotal.WithLabelValues(DirectionDownload, ResultSuccess)); got != 1 {
		t.Errorf("expected 1 successful download, got %f", got)
	}
	if got := testutil.ToFloat64(TransfersTotal.WithLabelValues(DirectionUpload, ResultError)); got != 1 {
		t.Errorf("expected 1 failed upload, got %f", got)
	}
	if got := testutil.ToFloat64(TransferBytes.WithLabelValues(DirectionDownload)); got != 1024 {
		t.Errorf("expected 1024 download bytes, got %f", got)
	}
}

func TestProfileSaveMetrics(t *testing.T) {
	ProfileSavesTotal.Reset()

	ProfileSavesTotal.WithLabelValues(SaveWritten).Inc()
	ProfileSavesTotal.WithLabelValues(SaveUnchanged).Inc()

	if got := testutil.ToFloat64(ProfileSavesTotal.WithLabelValues(SaveWritten)); got != 1 {
		t.Errorf("expected 1 written save, got %f", got)
	}
	if got := testutil.ToFloat64(ProfileSavesTotal.WithLabelValues(SaveUnchanged)); got != 1 {
		t.Errorf("expected 1 unchanged save, got %f", got)
	}
}
