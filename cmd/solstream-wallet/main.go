// Command solstream-wallet signs in to a SolStream server with a local
// keypair and reports the wallet's SOL balance.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/scalecode-solutions/solstream/balance"
	"github.com/scalecode-solutions/solstream/wallet"
)

func main() {
	server := flag.String("server", "http://localhost:6060", "SolStream server URL")
	keypair := flag.String("keypair", "", "Path to a solana-keygen keypair file (random key when empty)")
	name := flag.String("wallet", "Phantom", "Wallet name to register the keypair under")
	sessionFile := flag.String("session", "solstream-session.json", "Where the signed-in session is kept")
	rpcEndpoint := flag.String("rpc", "https://api.mainnet-beta.solana.com", "Solana RPC endpoint")
	commitment := flag.String("commitment", "confirmed", "RPC commitment level")
	watch := flag.Duration("watch", 0, "Keep polling the balance at this interval")
	status := flag.Bool("status", false, "Show the stored session and exit")
	logout := flag.Bool("logout", false, "Sign out the stored session and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := loadProvider(*keypair)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load keypair: %v\n", err)
		os.Exit(1)
	}

	registry := wallet.DefaultRegistry()
	registry.Register(*name, "", provider)

	m, err := wallet.NewManager(wallet.Options{
		Registry:      registry,
		Authenticator: wallet.NewHTTPAuthenticator(*server, nil),
		Sessions:      wallet.NewFileStore(*sessionFile),
		Balances:      balance.NewClient(*rpcEndpoint, *commitment, 10*time.Second),
		Notifier:      wallet.NotifierFunc(printNotice),
		Logger:        logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create wallet manager: %v\n", err)
		os.Exit(1)
	}

	restored, err := m.Restore(ctx)
	if err != nil {
		logger.Warn("failed to restore session", "error", err)
	}

	switch {
	case *status:
		if !restored {
			fmt.Println("Not signed in")
			return
		}
		printState(m.State())
		return

	case *logout:
		if !restored {
			fmt.Println("Not signed in")
			return
		}
		if err := m.Disconnect(ctx); err != nil {
			os.Exit(1)
		}
		fmt.Println("Signed out")
		return
	}

	if err := m.Connect(ctx, *name); err != nil {
		fmt.Fprintf(os.Stderr, "Sign-in failed: %v\n", err)
		os.Exit(1)
	}
	if err := m.RefreshBalance(ctx); err != nil {
		logger.Warn("balance unavailable", "error", err)
	}
	printState(m.State())

	if *watch <= 0 {
		return
	}
	if err := m.StartBalancePolling(ctx, *watch); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to poll balance: %v\n", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(*watch)
	defer ticker.Stop()
	last := m.State().BalanceDisplay()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if bal := m.State().BalanceDisplay(); bal != last {
				fmt.Printf("Balance: %s SOL\n", displayOr(bal, "unknown"))
				last = bal
			}
		}
	}
}

func loadProvider(path string) (*wallet.KeypairProvider, error) {
	if path == "" {
		slog.Warn("no keypair given, using a throwaway key")
		return wallet.NewRandomKeypairProvider()
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, err
	}
	return wallet.NewKeypairProvider(key), nil
}

func printNotice(n wallet.Notice) {
	if n.Description == "" {
		fmt.Println(n.Title)
		return
	}
	fmt.Printf("%s: %s\n", n.Title, n.Description)
}

func printState(st wallet.State) {
	fmt.Printf("Wallet:  %s\n", st.Address)
	if st.WalletName != "" {
		fmt.Printf("Via:     %s\n", st.WalletName)
	}
	if st.Session != nil && !st.Session.ExpiresAt.IsZero() {
		fmt.Printf("Expires: %s\n", st.Session.ExpiresAt.Local().Format(time.RFC1123))
	}
	if st.Connected {
		fmt.Printf("Balance: %s SOL\n", displayOr(st.BalanceDisplay(), "unknown"))
	}
}

func displayOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
