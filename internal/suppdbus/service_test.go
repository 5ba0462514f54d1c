package suppdbus

import (
	"log/slog"
	"testing"

	"github.com/go8021x/go8021x/internal/dot1x"
)

func newTestSupplicant() *dot1x.Supplicant {
	cfg := dot1x.SupplicantConfig{
		Username:    "alice",
		Password:    "s3cret",
		Acceptable:  []dot1x.MethodType{dot1x.MethodMD5Challenge},
		StartPeriod: 30,
		MaxStart:    3,
		HeldPeriod:  60,
	}
	return dot1x.NewSupplicant(cfg, nil, slog.Default())
}

func TestEapMethodNameEmptyWhenUnselected(t *testing.T) {
	t.Parallel()

	supp := newTestSupplicant()
	if got := eapMethodName(supp); got != "" {
		t.Errorf("eapMethodName = %q, want empty", got)
	}
}

func TestEapMethodNameReflectsSelection(t *testing.T) {
	t.Parallel()

	supp := newTestSupplicant()
	supp.Peer.HasSelectedMethod = true
	supp.Peer.SelectedMethod = dot1x.MethodMD5Challenge

	if got := eapMethodName(supp); got != dot1x.MethodMD5Challenge.String() {
		t.Errorf("eapMethodName = %q, want %q", got, dot1x.MethodMD5Challenge.String())
	}
}

func TestServiceLogoffSetsUserLogoff(t *testing.T) {
	t.Parallel()

	supp := newTestSupplicant()
	svc := NewService(supp, slog.Default())

	if err := svc.Logoff(); err != nil {
		t.Fatalf("Logoff: %v", err)
	}
	if !supp.PAE.UserLogoff {
		t.Error("expected UserLogoff to be set")
	}
}

func TestServiceReauthenticateRestartsPAE(t *testing.T) {
	t.Parallel()

	supp := newTestSupplicant()
	supp.PAE.UserLogoff = true
	svc := NewService(supp, slog.Default())

	if err := svc.Reauthenticate(); err != nil {
		t.Fatalf("Reauthenticate: %v", err)
	}
	if supp.PAE.UserLogoff {
		t.Error("expected UserLogoff to be cleared by Reauthenticate")
	}
}

func TestRefreshNoopWithoutExport(t *testing.T) {
	t.Parallel()

	supp := newTestSupplicant()
	svc := NewService(supp, slog.Default())

	// Must not panic when Export has not run yet.
	svc.Refresh()
}
