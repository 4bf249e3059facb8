package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunReturnsErrorsInsteadOfExiting(t *testing.T) {
	defer func(e, d string) { *email, *dsn = e, d }(*email, *dsn)

	*email, *dsn = "", "postgres://localhost/none"
	assert.EqualError(t, run(), "--email is required")

	*email, *dsn = "ada@example.com", ""
	assert.EqualError(t, run(), "--dsn not provided and DATABASE_URL not set")
}
