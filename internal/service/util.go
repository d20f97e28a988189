package service

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// parseID converts a client-supplied hex id, mapping malformed input onto
// the shared invalid-input sentinel.
func parseID(hexID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: bad id %q", ErrInvalidInput, hexID)
	}
	return id, nil
}

func Filter[T any](items []T, fn func(T) bool) []T {
	var result []T
	for _, v := range items {
		if fn(v) {
			result = append(result, v)
		}
	}
	return result
}

func Map[T, U any](items []T, fn func(T) U) []U {
	result := make([]U, 0, len(items))
	for _, v := range items {
		result = append(result, fn(v))
	}
	return result
}
