// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports). The core services depend on these interfaces;
// the adapters under internal/adapters/driven implement them.
package driven
