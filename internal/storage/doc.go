// Package storage defines the external key-value store collaborator and
// an in-memory implementation. Stores deal in raw bytes; typing happens
// above this layer.
package storage
