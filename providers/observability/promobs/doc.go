// Package promobs exports the metrics of an observability.Provider to
// Prometheus.
//
// An Observer wraps another Provider: spans and logs go to the wrapped
// provider unchanged, and every counter and histogram records into both the
// wrapped provider and a Prometheus collector. Metric names are sanitized
// ("deepresearch.run.count" becomes "deepresearch_run_count_total") and the
// attribute keys seen on the first recording become the label set.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	observer, err := promobs.New(slogobs.New(), registry)
//	if err != nil {
//	    return err
//	}
//	workflow, err := research.New(capabilities, research.WithObserver(observer))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
package promobs
