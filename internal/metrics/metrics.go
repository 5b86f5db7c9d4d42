package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
)

// counterVec is a set of Prometheus-style counters keyed by one label.
type counterVec struct {
	mu     sync.RWMutex
	values map[string]*atomic.Uint64
}

func newCounterVec() *counterVec {
	return &counterVec{values: make(map[string]*atomic.Uint64)}
}

func (v *counterVec) add(label string, n uint64) {
	v.mu.RLock()
	c, ok := v.values[label]
	v.mu.RUnlock()
	if !ok {
		v.mu.Lock()
		if c, ok = v.values[label]; !ok {
			c = new(atomic.Uint64)
			v.values[label] = c
		}
		v.mu.Unlock()
	}
	c.Add(n)
}

func (v *counterVec) get(label string) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if c, ok := v.values[label]; ok {
		return c.Load()
	}
	return 0
}

func (v *counterVec) write(w http.ResponseWriter, name, label string) {
	v.mu.RLock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	v.mu.RUnlock()
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s{%s=%q} %d\n", name, label, k, v.get(k))
	}
}

var (
	answers          = newCounterVec()
	providerAttempts = newCounterVec()
	providerFailures = newCounterVec()
	queryRejected    = newCounterVec()

	videoCacheHits   atomic.Uint64
	videoCacheMisses atomic.Uint64
)

// IncAnswer counts an answer served by the given tier.
func IncAnswer(source string) { answers.add(source, 1) }

// AddProviderAttempts counts HTTP attempts made against a provider.
func AddProviderAttempts(provider string, n int) {
	if n > 0 {
		providerAttempts.add(provider, uint64(n))
	}
}

// IncProviderFailure counts a provider tier giving up after its retries.
func IncProviderFailure(provider string) { providerFailures.add(provider, 1) }

// IncQueryRejected counts questions rejected by validation.
func IncQueryRejected(reason string) { queryRejected.add(reason, 1) }

func IncVideoCacheHit()  { videoCacheHits.Add(1) }
func IncVideoCacheMiss() { videoCacheMisses.Add(1) }

// Answers returns the number of answers served by source.
func Answers(source string) uint64 { return answers.get(source) }

// ProviderFailures returns the failure count for provider.
func ProviderFailures(provider string) uint64 { return providerFailures.get(provider) }

// Handler exposes metrics in the Prometheus text exposition format.
func Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP healthinfo_answers_total Answers served, by fallback tier\n")
	fmt.Fprintf(w, "# TYPE healthinfo_answers_total counter\n")
	answers.write(w, "healthinfo_answers_total", "source")

	fmt.Fprintf(w, "# HELP healthinfo_provider_attempts_total Requests sent to each LLM provider, including retries\n")
	fmt.Fprintf(w, "# TYPE healthinfo_provider_attempts_total counter\n")
	providerAttempts.write(w, "healthinfo_provider_attempts_total", "provider")

	fmt.Fprintf(w, "# HELP healthinfo_provider_failures_total Provider tiers exhausted before falling back\n")
	fmt.Fprintf(w, "# TYPE healthinfo_provider_failures_total counter\n")
	providerFailures.write(w, "healthinfo_provider_failures_total", "provider")

	fmt.Fprintf(w, "# HELP healthinfo_query_rejected_total Questions rejected by validation\n")
	fmt.Fprintf(w, "# TYPE healthinfo_query_rejected_total counter\n")
	queryRejected.write(w, "healthinfo_query_rejected_total", "reason")

	fmt.Fprintf(w, "# HELP healthinfo_video_cache_requests_total Video lookups served from cache or upstream\n")
	fmt.Fprintf(w, "# TYPE healthinfo_video_cache_requests_total counter\n")
	fmt.Fprintf(w, "healthinfo_video_cache_requests_total{result=\"hit\"} %d\n", videoCacheHits.Load())
	fmt.Fprintf(w, "healthinfo_video_cache_requests_total{result=\"miss\"} %d\n", videoCacheMisses.Load())
}
