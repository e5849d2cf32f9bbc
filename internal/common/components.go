package common

const (
	ComponentMain        = "main"
	ComponentScheduler   = "scheduler"
	ComponentSyncer      = "syncer"
	ComponentLogFetcher  = "log-fetcher"
	ComponentDecoder     = "event-decoder"
	ComponentHandlers    = "handlers"
	ComponentEventStore  = "event-store"
	ComponentChainClient = "chain-client"
	ComponentMetrics     = "metrics"
)

var AllComponents = map[string]struct{}{
	ComponentMain:        {},
	ComponentScheduler:   {},
	ComponentSyncer:      {},
	ComponentLogFetcher:  {},
	ComponentDecoder:     {},
	ComponentHandlers:    {},
	ComponentEventStore:  {},
	ComponentChainClient: {},
	ComponentMetrics:     {},
}
