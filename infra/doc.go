// Package infra holds the adapters around the roaming network core: the
// MQTT status exporter, metrics sinks, the Redis CDR store, HTTP providers
// and the operator simulator. Packages here depend on core interfaces,
// never the other way round.
package infra
