package wallet

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/drolelabs/drole/internal/domain"
)

// DefaultConnectDelay models the wallet-extension handshake latency.
const DefaultConnectDelay = 1500 * time.Millisecond

// Options configures a Provider.
type Options struct {
	// KeystorePath is where the encrypted session key lives. Empty means
	// an ephemeral key is generated per process.
	KeystorePath string

	// KeystorePassword decrypts (or encrypts, on first run) the keystore.
	// Required when KeystorePath is set.
	KeystorePassword string

	// ConnectDelay is the simulated handshake latency applied per Address
	// call. Zero means DefaultConnectDelay; negative disables the delay.
	ConnectDelay time.Duration
}

// Provider derives a session address from a secp256k1 key, resolving the
// key lazily on first connect. It implements domain.AddressProvider.
type Provider struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	address string
}

// NewProvider creates a Provider from the given options.
func NewProvider(opts Options, logger *slog.Logger) *Provider {
	if opts.ConnectDelay == 0 {
		opts.ConnectDelay = DefaultConnectDelay
	}
	return &Provider{
		opts:   opts,
		logger: logger.With(slog.String("component", "wallet")),
	}
}

// Address resolves the session key, applies the simulated handshake delay,
// and returns the shortened display address. The key is resolved once and
// cached; subsequent calls reuse the same address.
func (p *Provider) Address(ctx context.Context) (string, error) {
	if p.opts.ConnectDelay > 0 {
		timer := time.NewTimer(p.opts.ConnectDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("wallet: connect: %w", ctx.Err())
		case <-timer.C:
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.address != "" {
		return p.address, nil
	}

	keyHex, err := p.resolveKey()
	if err != nil {
		return "", err
	}

	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return "", fmt.Errorf("wallet: invalid session key: %w", err)
	}

	full := ethcrypto.PubkeyToAddress(pk.PublicKey).Hex()
	p.address = ShortenAddress(full)

	p.logger.Info("session key resolved", slog.String("address", p.address))
	return p.address, nil
}

func (p *Provider) resolveKey() (string, error) {
	if p.opts.KeystorePath == "" {
		return generateKeyHex()
	}
	return loadOrCreateKeystore(p.opts.KeystorePath, p.opts.KeystorePassword, generateKeyHex)
}

func generateKeyHex() (string, error) {
	pk, err := ethcrypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("wallet: generating key: %w", err)
	}
	return hex.EncodeToString(ethcrypto.FromECDSA(pk)), nil
}

// ShortenAddress converts a full hex address into its display form, e.g.
// "0x71C7656E...9A21" becomes "0x71C...9A21". Short inputs pass through
// unchanged.
func ShortenAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:5] + "..." + addr[len(addr)-4:]
}

// Compile-time interface check.
var _ domain.AddressProvider = (*Provider)(nil)
