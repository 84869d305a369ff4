package main

// SessionInterface defines the methods handlers need from a session.
// This interface enables mocking sessions in tests.
type SessionInterface interface {
	ID() string
	Wallet() string
	SetWallet(wallet string)
	UserAgent() string
	IsAuthenticated() bool
	RequireAuth(msgID string) bool
	Send(msg *ServerMessage)
}

// Compile-time check that Session implements SessionInterface.
var _ SessionInterface = (*Session)(nil)
