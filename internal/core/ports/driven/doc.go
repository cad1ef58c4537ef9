// Package driven defines the secondary (outbound) ports: interfaces the
// core services require from infrastructure adapters such as storage,
// embedding backends and generation backends.
package driven
