package main

import (
	"github.com/google/uuid"
)

// shortAddr abbreviates a wallet address for logging.
// Example: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin" -> "9xQe...VFin"
func shortAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

// shortID returns a truncated UUID string for logging (first 8 chars).
// Example: "550e8400-e29b-41d4-a716-446655440000" -> "550e8400"
func shortID(id uuid.UUID) string {
	return shortSID(id.String())
}

// shortSID is shortID for ids already in string form.
func shortSID(s string) string {
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}
