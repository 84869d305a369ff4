package wallet

import "testing"

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	wallets := r.Wallets()

	want := []string{"Phantom", "Solflare", "Backpack"}
	if len(wallets) != len(want) {
		t.Fatalf("expected %d wallets, got %d", len(want), len(wallets))
	}
	for i, name := range want {
		if wallets[i].Name != name {
			t.Errorf("wallet %d = %q, want %q", i, wallets[i].Name, name)
		}
		if wallets[i].Installed() {
			t.Errorf("%s should not be installed", name)
		}
	}

	if _, ok := r.Lookup("Phantom"); ok {
		t.Error("Lookup should fail for a wallet without provider")
	}
	if _, ok := r.Lookup("Unknown"); ok {
		t.Error("Lookup should fail for an unknown wallet")
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := DefaultRegistry()
	p, err := NewRandomKeypairProvider()
	if err != nil {
		t.Fatalf("NewRandomKeypairProvider failed: %v", err)
	}

	r.Register("Solflare", "/icons/solflare.svg", p)

	wallets := r.Wallets()
	if len(wallets) != 3 {
		t.Fatalf("expected 3 wallets after replace, got %d", len(wallets))
	}
	if wallets[1].Icon != "/icons/solflare.svg" || !wallets[1].Installed() {
		t.Errorf("Solflare entry not replaced in place: %+v", wallets[1])
	}
	got, ok := r.Lookup("Solflare")
	if !ok || got != p {
		t.Error("Lookup did not return the registered provider")
	}
}

func TestRegistry_WalletsIsSnapshot(t *testing.T) {
	r := DefaultRegistry()
	snap := r.Wallets()
	snap[0].Name = "changed"

	if r.Wallets()[0].Name != "Phantom" {
		t.Error("modifying a snapshot changed the registry")
	}
}
