package wallet

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/scalecode-solutions/solstream/balance"
)

// Options configures a Manager. Registry and Authenticator are required.
type Options struct {
	Registry      *Registry
	Authenticator Authenticator
	Sessions      SessionStore    // defaults to a MemoryStore
	Balances      balance.Fetcher // nil disables balance tracking
	Notifier      Notifier
	Logger        *slog.Logger
}

// State is a snapshot of the wallet connection.
type State struct {
	Connected     bool
	Authenticated bool
	WalletName    string
	Address       string
	// Balance in SOL; nil while unknown.
	Balance *float64
	Session *WalletSession
}

// BalanceDisplay renders the balance with two decimals, or "" when unknown.
func (s State) BalanceDisplay() string {
	if s.Balance == nil {
		return ""
	}
	return balance.FormatSOL(*s.Balance)
}

// Manager owns the single wallet connection of a client. It is safe for
// concurrent use.
type Manager struct {
	registry *Registry
	auth     Authenticator
	sessions SessionStore
	balances balance.Fetcher
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu            sync.Mutex
	provider      Provider
	walletName    string
	publicKey     solana.PublicKey
	connected     bool
	authenticated bool
	session       *WalletSession
	balance       *float64
	// gen changes on every connect and disconnect; work started under an
	// older generation must not touch state.
	gen uint64

	bg sync.WaitGroup
}

// NewManager creates a disconnected Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Registry == nil {
		return nil, errors.New("wallet: registry is required")
	}
	if opts.Authenticator == nil {
		return nil, errors.New("wallet: authenticator is required")
	}
	if opts.Sessions == nil {
		opts.Sessions = NewMemoryStore()
	}
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		registry: opts.Registry,
		auth:     opts.Authenticator,
		sessions: opts.Sessions,
		balances: opts.Balances,
		notifier: opts.Notifier,
		logger:   opts.Logger.With("component", "wallet"),
		now:      time.Now,
	}, nil
}

// State returns a snapshot of the connection.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := State{
		Connected:     m.connected,
		Authenticated: m.authenticated,
		WalletName:    m.walletName,
	}
	if m.connected {
		st.Address = m.publicKey.String()
	}
	if m.balance != nil {
		v := *m.balance
		st.Balance = &v
	}
	if m.session != nil {
		s := *m.session
		st.Session = &s
		if st.Address == "" {
			st.Address = s.WalletAddress
		}
	}
	return st
}

// Connect connects the named wallet and signs in with it. The wallet stays
// connected when only sign-in fails; the returned error then wraps
// ErrAuthFailed or ErrSigningUnsupported. An existing connection is torn
// down as by Disconnect before the new wallet is asked to connect.
func (m *Manager) Connect(ctx context.Context, name string) error {
	p, ok := m.registry.Lookup(name)
	if !ok {
		m.notifier.Notify(Notice{
			Kind:        NoticeNotInstalled,
			Title:       "Wallet extension not detected",
			Description: fmt.Sprintf("Please install the %s wallet extension first", name),
		})
		return ErrNotInstalled
	}

	// Switching wallets ends the previous session first.
	m.mu.Lock()
	replacing := m.connected || m.session != nil
	var oldProvider Provider
	var oldSession *WalletSession
	if replacing {
		oldProvider, oldSession = m.resetLocked()
	}
	m.mu.Unlock()
	if replacing {
		if err := m.teardown(ctx, oldProvider, oldSession); err != nil {
			m.logger.Warn("previous wallet teardown incomplete", "error", err)
		}
	}

	pk, err := p.Connect(ctx)
	if err != nil {
		m.logger.Warn("wallet connect failed", "wallet", name, "error", err)
		m.notifier.Notify(Notice{
			Kind:        NoticeConnectFailed,
			Title:       "Failed to connect wallet",
			Description: err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.provider = p
	m.walletName = name
	m.publicKey = pk
	m.connected = true
	m.authenticated = false
	m.session = nil
	m.balance = nil
	m.mu.Unlock()

	address := pk.String()
	m.logger.Info("wallet connected", "wallet", name, "address", address)

	if m.balances != nil {
		m.bg.Add(1)
		go func() {
			defer m.bg.Done()
			_ = m.fetchBalance(context.WithoutCancel(ctx), gen, address)
		}()
	}

	return m.authenticate(ctx, gen, p, address)
}

func (m *Manager) authenticate(ctx context.Context, gen uint64, p Provider, address string) error {
	fail := func(err error) error {
		m.setUnauthenticated(gen)
		m.logger.Warn("wallet authentication failed", "address", address, "error", err)
		m.notifier.Notify(Notice{
			Kind:        NoticeAuthFailed,
			Title:       "Authentication failed",
			Description: err.Error(),
		})
		if errors.Is(err, ErrAuthFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	ch, err := m.auth.Challenge(ctx, address)
	if err != nil {
		return fail(err)
	}

	sig, err := p.SignMessage(ctx, []byte(ch.Message))
	if errors.Is(err, ErrSigningUnsupported) {
		m.setUnauthenticated(gen)
		m.notifier.Notify(Notice{
			Kind:        NoticeSigningUnsupported,
			Title:       "Authentication failed",
			Description: "Wallet doesn't support message signing",
		})
		return err
	}
	if err != nil {
		return fail(err)
	}

	sess, err := m.auth.Verify(ctx, address, ch.Nonce, base64.StdEncoding.EncodeToString(sig))
	if err != nil {
		return fail(err)
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return ErrNotConnected
	}
	m.session = sess
	m.authenticated = true
	m.mu.Unlock()

	if err := m.sessions.Save(sess); err != nil {
		m.logger.Warn("failed to persist wallet session", "error", err)
	}

	m.notifier.Notify(Notice{
		Kind:  NoticeSuccess,
		Title: "Wallet connected and authenticated!",
	})
	return nil
}

func (m *Manager) setUnauthenticated(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == gen {
		m.authenticated = false
		m.session = nil
	}
}

// Restore adopts a previously saved session without contacting the server.
// Expired or unreadable sessions are cleared, as is a session belonging to a
// wallet other than the connected one. It reports whether a session was
// restored.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	s, err := m.sessions.Load()
	if errors.Is(err, ErrCorruptSession) {
		m.logger.Warn("discarding corrupt wallet session")
		return false, m.sessions.Clear()
	}
	if err != nil {
		return false, err
	}
	if s == nil {
		return false, nil
	}
	if s.Expired(m.now()) {
		m.logger.Info("discarding expired wallet session", "address", s.WalletAddress)
		return false, m.sessions.Clear()
	}

	m.mu.Lock()
	if m.connected && m.publicKey.String() != s.WalletAddress {
		m.mu.Unlock()
		m.logger.Info("discarding wallet session for another address", "address", s.WalletAddress)
		return false, m.sessions.Clear()
	}
	if !m.connected {
		// Late results from earlier connections must not replace this session.
		m.gen++
	}
	m.session = s
	m.authenticated = true
	m.mu.Unlock()
	return true, nil
}

// RefreshBalance fetches the connected wallet's balance once. On failure the
// cached balance becomes unknown.
func (m *Manager) RefreshBalance(ctx context.Context) error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	gen, address := m.gen, m.publicKey.String()
	m.mu.Unlock()

	return m.fetchBalance(ctx, gen, address)
}

func (m *Manager) fetchBalance(ctx context.Context, gen uint64, address string) error {
	if m.balances == nil {
		return nil
	}
	lamports, err := m.balances.Balance(ctx, address)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return nil
	}
	if err != nil {
		m.balance = nil
		m.logger.Warn("balance fetch failed", "address", address, "error", err)
		return err
	}
	sol := balance.LamportsToSOL(lamports)
	m.balance = &sol
	return nil
}

// StartBalancePolling refreshes the balance every interval in the
// background until ctx is done or the wallet disconnects or reconnects.
func (m *Manager) StartBalancePolling(ctx context.Context, interval time.Duration) error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	gen, address := m.gen, m.publicKey.String()
	m.mu.Unlock()

	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !m.current(gen) {
					return
				}
				_ = m.fetchBalance(ctx, gen, address)
			}
		}
	}()
	return nil
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

// Disconnect logs out, forgets the stored session and disconnects the
// provider. Local state is always reset; the returned error joins whatever
// failed along the way.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	p, sess := m.resetLocked()
	m.mu.Unlock()

	err := m.teardown(ctx, p, sess)
	if err != nil {
		m.logger.Warn("wallet disconnect incomplete", "error", err)
		m.notifier.Notify(Notice{
			Kind:        NoticeDisconnectFailed,
			Title:       "Failed to disconnect wallet",
			Description: err.Error(),
		})
	}
	return err
}

// resetLocked clears the connection and returns the provider and session it
// held. m.mu must be held.
func (m *Manager) resetLocked() (Provider, *WalletSession) {
	p, sess := m.provider, m.session
	m.gen++
	m.provider = nil
	m.walletName = ""
	m.publicKey = solana.PublicKey{}
	m.connected = false
	m.authenticated = false
	m.session = nil
	m.balance = nil
	return p, sess
}

func (m *Manager) teardown(ctx context.Context, p Provider, sess *WalletSession) error {
	var errs []error
	if sess != nil {
		if err := m.auth.Logout(ctx, sess.AccessToken); err != nil {
			errs = append(errs, fmt.Errorf("logout: %w", err))
		}
	}
	if err := m.sessions.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("clear session: %w", err))
	}
	if p != nil {
		if err := p.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("provider disconnect: %w", err))
		}
	}
	return errors.Join(errs...)
}
