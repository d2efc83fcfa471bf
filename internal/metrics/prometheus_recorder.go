package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	stageDuration    *prom.HistogramVec
	buildDuration    prom.Histogram
	stageResults     *prom.CounterVec
	buildOutcome     *prom.CounterVec
	cloneDuration    *prom.HistogramVec
	cloneResults     *prom.CounterVec
	cloneConcurrency prom.Gauge
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
	issues           *prom.CounterVec
	renderMode       *prom.GaugeVec
	transformFailure *prom.CounterVec
	transformDur     *prom.HistogramVec
	cacheHits        *prom.CounterVec
	cacheMisses      *prom.CounterVec
	cacheReconcile   *prom.CounterVec
	fingerprintDur   *prom.HistogramVec
	restoreDur       *prom.HistogramVec
}

// NewPrometheusRecorder constructs Prometheus metrics and registers them on
// reg (a new registry when reg is nil). Each call registers a fresh set, so
// a second call with the same registry panics on duplicate registration.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docbuilder",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docbuilder",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docbuilder",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docbuilder",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.cloneDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docbuilder",
			Name:      "clone_repo_duration_seconds",
			Help:      "Duration of individual repository clone operations",
			Buckets:   prom.DefBuckets,
		}, []string{"repo", "result"})
		pr.cloneResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docbuilder",
			Name:      "clone_repo_results_total",
			Help:      "Clone results by success/failure",
		}, []string{"result"})
		pr.cloneConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: "docbuilder",
			Name:      "clone_concurrency",
			Help:      "Observed clone concurrency for the last build stage",
		})
		pr.retries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docbuilder",
			Name:      "build_retries_total",
			Help:      "Total build stage retries (transient failures)",
		}, []string{"stage"})
		pr.retriesExhausted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docbuilder",
			Name:      "build_retry_exhausted_total",
			Help:      "Count of stages where retries were exhausted", 
		}, []string{"stage"})
		pr.issues = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docbuilder",
			Name:      "issues_total",
			Help:      "Issues recorded by code, stage, and severity",
		}, []string{"code", "stage", "severity", "transient"})
		pr.renderMode = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "docbuilder",
			Name:      "effective_render_mode",
			Help:      "Effective render mode for the last build (1 = active mode)",
		}, []string{"mode"})
		pr.transformFailure = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docbuilder",
			Name:      "content_transform_failures_total",
			Help:      "Content transform failures by transform name",
		}, []string{"name"})
		pr.transformDur = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docbuilder",
			Name:      "content_transform_duration_seconds",
			Help:      "Duration of content transforms",
			Buckets:   prom.DefBuckets,
		}, []string{"name", "result"})
		pr.cacheHits = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "reactorcache",
			Name:      "cache_hits_total",
			Help:      "Cache hits by project",
		}, []string{"project"})
		pr.cacheMisses = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "reactorcache",
			Name:      "cache_misses_total",
			Help:      "Cache misses by project",
		}, []string{"project"})
		pr.cacheReconcile = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "reactorcache",
			Name:      "cache_reconciliation_mismatches_total",
			Help:      "Reconciliation mismatches forcing a re-run despite a cache hit",
		}, []string{"project"})
		pr.fingerprintDur = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "reactorcache",
			Name:      "fingerprint_duration_seconds",
			Help:      "Duration of project input fingerprint computation",
			Buckets:   prom.DefBuckets,
		}, []string{"project"})
		pr.restoreDur = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "reactorcache",
			Name:      "restore_duration_seconds",
			Help:      "Duration of cached-artifact restore by source",
			Buckets:   prom.DefBuckets,
		}, []string{"project", "source"})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome, pr.cloneDuration, pr.cloneResults, pr.cloneConcurrency, pr.retries, pr.retriesExhausted,
			pr.issues, pr.renderMode, pr.transformFailure, pr.transformDur,
			pr.cacheHits, pr.cacheMisses, pr.cacheReconcile, pr.fingerprintDur, pr.restoreDur)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}
func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}
func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveCloneRepoDuration(repo string, d time.Duration, success bool) {
	if p == nil || p.cloneDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.cloneDuration.WithLabelValues(repo, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCloneRepoResult(success bool) {
	if p == nil || p.cloneResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.cloneResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetCloneConcurrency(n int) {
	if p == nil || p.cloneConcurrency == nil {
		return
	}
	p.cloneConcurrency.Set(float64(n))
}

func (p *PrometheusRecorder) IncBuildRetry(stage string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) IncBuildRetryExhausted(stage string) {
	if p == nil || p.retriesExhausted == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) IncIssue(code, stage, severity string, transient bool) {
	if p == nil || p.issues == nil {
		return
	}
	p.issues.WithLabelValues(code, stage, severity, boolLabel(transient)).Inc()
}

func (p *PrometheusRecorder) SetEffectiveRenderMode(mode string) {
	if p == nil || p.renderMode == nil {
		return
	}
	p.renderMode.Reset()
	p.renderMode.WithLabelValues(mode).Set(1)
}

func (p *PrometheusRecorder) IncContentTransformFailure(name string) {
	if p == nil || p.transformFailure == nil {
		return
	}
	p.transformFailure.WithLabelValues(name).Inc()
}

func (p *PrometheusRecorder) ObserveContentTransformDuration(name string, d time.Duration, success bool) {
	if p == nil || p.transformDur == nil {
		return
	}
	p.transformDur.WithLabelValues(name, resultLabel(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCacheHit(project string) {
	if p == nil || p.cacheHits == nil {
		return
	}
	p.cacheHits.WithLabelValues(project).Inc()
}

func (p *PrometheusRecorder) IncCacheMiss(project string) {
	if p == nil || p.cacheMisses == nil {
		return
	}
	p.cacheMisses.WithLabelValues(project).Inc()
}

func (p *PrometheusRecorder) IncCacheReconciliationMismatch(project string) {
	if p == nil || p.cacheReconcile == nil {
		return
	}
	p.cacheReconcile.WithLabelValues(project).Inc()
}

func (p *PrometheusRecorder) ObserveFingerprintDuration(project string, d time.Duration) {
	if p == nil || p.fingerprintDur == nil {
		return
	}
	p.fingerprintDur.WithLabelValues(project).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRestoreDuration(project, source string, d time.Duration) {
	if p == nil || p.restoreDur == nil {
		return
	}
	p.restoreDur.WithLabelValues(project, source).Observe(d.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
