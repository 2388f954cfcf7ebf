package observability

import (
	gometrics "github.com/xraph/go-utils/metrics"
)

// GoUtilsFactory is a MetricFactory backed by a go-utils metrics collector,
// such as the one a forge app exposes. Metric names pass through unchanged.
type GoUtilsFactory struct {
	metrics gometrics.MetricFactory
	opts    []gometrics.MetricOption
}

// NewGoUtilsFactory wraps f. Every metric it creates carries opts.
func NewGoUtilsFactory(f gometrics.MetricFactory, opts ...gometrics.MetricOption) *GoUtilsFactory {
	return &GoUtilsFactory{metrics: f, opts: opts}
}

// Counter implements MetricFactory.
func (f *GoUtilsFactory) Counter(name string) Counter {
	return f.metrics.Counter(name, f.opts...)
}

// Histogram implements MetricFactory.
func (f *GoUtilsFactory) Histogram(name string) Histogram {
	return f.metrics.Histogram(name, f.opts...)
}
