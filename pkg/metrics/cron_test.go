package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "commission-overdue-sweep"
	started := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	metrics.ObserveRun(job, started, 250*time.Millisecond, nil)
	metrics.ObserveRun(job, started, 100*time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(metrics.lastSuccess.WithLabelValues(job)); got != float64(started.Unix()) {
		t.Fatalf("expected last success timestamp %d, got %f", started.Unix(), got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "job_success", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "job_failure", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var cron *CronJobMetrics
	cron.ObserveRun("job", time.Now(), time.Second, nil)
	var billing *BillingMetrics
	billing.SweepRecord(OutcomeFrozen)
	billing.PeriodClosed(OutcomeCreated)
	billing.CheckoutSession(OutcomeSuccess)
	NewCronJobMetrics(nil).IncFailure("job")
}

func TestBillingMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	billing := NewBillingMetrics(reg)
	billing.SweepRecord(OutcomeFrozen)
	billing.SweepRecords(OutcomeAlreadyFrozen, 3)
	billing.SweepRecords(OutcomeError, 0)
	billing.PeriodClosed(OutcomeNoOp)
	billing.CheckoutSession("")

	if got := testutil.ToFloat64(billing.sweepRecords.WithLabelValues(OutcomeAlreadyFrozen)); got != 3 {
		t.Fatalf("expected 3 already_frozen, got %f", got)
	}
	if got := testutil.ToFloat64(billing.checkoutSessions.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected blank outcome to normalize to unknown, got %f", got)
	}
	if got := testutil.CollectAndCount(billing.sweepRecords); got != 2 {
		t.Fatalf("expected only touched outcomes to be exported, got %d", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := NewRegistry()
	NewBillingMetrics(reg).PeriodClosed(OutcomeCreated)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "commission_periods_closed_total") {
		t.Fatalf("expected billing counter in output")
	}
}
