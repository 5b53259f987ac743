package domain

import "context"

// KVStore is the durable key-value storage behind the snapshot adapter.
// Implementations must return ErrNotFound from Get when the key is absent.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// SentimentProvider produces a sentiment payload for a market snapshot.
// Callers treat any error as "provider unavailable" and substitute the
// deterministic fallback; provider errors never reach the UI layer.
type SentimentProvider interface {
	Sentiment(ctx context.Context, m Market) (Sentiment, error)
	Analyze(ctx context.Context, m Market) (string, error)
}

// AddressProvider resolves a session address during the simulated wallet
// handshake.
type AddressProvider interface {
	// Address returns the display form of the wallet address, e.g.
	// "0x71C2...9A21". Implementations may block for a simulated
	// connection delay; they must honor ctx cancellation.
	Address(ctx context.Context) (string, error)
}
