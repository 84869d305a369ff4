package auth

import (
	"context"
	"testing"
	"time"
)

func TestMemoryNonceTracker(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryNonceTracker()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	if ok, _ := tr.MarkNonceUsed(ctx, "n1", time.Minute); !ok {
		t.Fatal("first use should succeed")
	}
	if ok, _ := tr.MarkNonceUsed(ctx, "n1", time.Minute); ok {
		t.Error("second use should fail")
	}
	if ok, _ := tr.MarkNonceUsed(ctx, "n2", time.Minute); !ok {
		t.Error("different nonce should succeed")
	}

	now = now.Add(2 * time.Minute)
	tr.MarkNonceUsed(ctx, "n3", time.Minute)
	if len(tr.used) != 1 {
		t.Errorf("expired nonces not pruned, have %d", len(tr.used))
	}
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	if revoked, _ := r.IsSessionRevoked(ctx, "s1"); revoked {
		t.Error("unknown session reported revoked")
	}

	r.RevokeSession(ctx, "s1", time.Hour)
	if revoked, _ := r.IsSessionRevoked(ctx, "s1"); !revoked {
		t.Error("revoked session not reported")
	}

	now = now.Add(2 * time.Hour)
	if revoked, _ := r.IsSessionRevoked(ctx, "s1"); revoked {
		t.Error("revocation should lapse with the token")
	}
}
