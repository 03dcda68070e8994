package utils

import (
	"os"
	"strconv"

	"github.com/google/uuid"
)

const (
	DefaultSemaphoreLimit = 20
	DefaultMaxWorkers     = 5
)

// GetSemaphoreLimit returns the semaphore limit from environment variable or default
func GetSemaphoreLimit() int {
	val := os.Getenv("SEMAPHORE_LIMIT")
	if val == "" {
		return DefaultSemaphoreLimit
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit <= 0 {
		return DefaultSemaphoreLimit
	}
	return limit
}

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}
