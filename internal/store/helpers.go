package store

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// recordValue reads key from record as T. Missing keys, nulls, and values of
// another type all yield the zero value.
func recordValue[T any](record *neo4j.Record, key string) T {
	var zero T
	val, ok := record.Get(key)
	if !ok {
		return zero
	}
	if v, ok := val.(T); ok {
		return v
	}
	return zero
}
