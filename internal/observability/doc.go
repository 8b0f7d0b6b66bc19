// Package observability records engine events as JSON Lines and derives
// assessment metrics and alerts from them on demand. Nothing is aggregated
// at write time; every figure is recomputed from the log.
package observability
