// Package health reports whether the gateway's components can serve.
//
// Each component exposes a Checker; an Aggregator runs them together and
// folds the outcomes into one status: healthy, degraded or unhealthy.
// Degraded components still serve traffic, so readiness treats them as up.
//
// Checkers exist for the customer-scoped cache, the upstream connection
// pool and process memory, and HTTP handlers cover the usual probe
// endpoints:
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register("cache", health.NewCacheChecker(c.Stats, cacheCfg))
//	agg.Register("pool", health.NewPoolChecker(pool.Stats, poolCfg))
//	agg.Register("memory", health.NewRuntimeMemoryChecker(health.RuntimeMemoryConfig{}))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//	mux.HandleFunc("/stats", health.StatsHandler(func() any { return p.Stats() }))
package health
