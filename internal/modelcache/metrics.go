/*
MIT License

Copyright (c) 2025 Advanced Micro Devices, Inc.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package modelcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type storeMetrics struct {
	entryCount    prometheus.Gauge
	totalBytes    prometheus.Gauge
	fetchesTotal  prometheus.Counter
	fetchFailures prometheus.Counter
}

// Metrics are registered once at package scope rather than per-Store: a
// process may open more than one Store (e.g. in tests), and promauto panics
// on duplicate registration against the default registry.
var (
	cacheEntryCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aim_model_cache_entries",
		Help: "Number of model cache entries currently recorded in the index.",
	})
	cacheTotalBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aim_model_cache_bytes_total",
		Help: "Total recursive byte size of all cached model directories.",
	})
	cacheFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aim_model_cache_fetches_total",
		Help: "Total number of successful cache population fetches.",
	})
	cacheFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aim_model_cache_fetch_failures_total",
		Help: "Total number of failed cache population fetches.",
	})
)

func newStoreMetrics() *storeMetrics {
	return &storeMetrics{
		entryCount:    cacheEntryCount,
		totalBytes:    cacheTotalBytes,
		fetchesTotal:  cacheFetchesTotal,
		fetchFailures: cacheFetchFailures,
	}
}
