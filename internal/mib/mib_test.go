package mib_test

import (
	"log/slog"
	"testing"

	"github.com/go8021x/go8021x/internal/dot1x"
	"github.com/go8021x/go8021x/internal/mib"
)

func TestSnapshotReflectsCounters(t *testing.T) {
	t.Parallel()

	logger := slog.Default()
	port := dot1x.NewPort(1, [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}, logger)
	port.Counters.FramesRx = 5
	port.Counters.StartFramesRx = 2
	port.Counters.RadiusAAATimeouts = 1
	port.PAE.AuthPortStatus = dot1x.PortStatusAuthorized

	snap := mib.Snapshot(port)

	if snap.PortIndex != 1 {
		t.Errorf("PortIndex = %d, want 1", snap.PortIndex)
	}
	if snap.Status != "authorized" {
		t.Errorf("Status = %q, want authorized", snap.Status)
	}
	if snap.Counters[mib.EapolFramesRx] != 5 {
		t.Errorf("EapolFramesRx = %d, want 5", snap.Counters[mib.EapolFramesRx])
	}
	if snap.Counters[mib.EapolStartFramesRx] != 2 {
		t.Errorf("EapolStartFramesRx = %d, want 2", snap.Counters[mib.EapolStartFramesRx])
	}
	if snap.Counters[mib.AuthAaaTimeout] != 1 {
		t.Errorf("AuthAaaTimeout = %d, want 1", snap.Counters[mib.AuthAaaTimeout])
	}
}

func TestAllCounterNamesNonEmpty(t *testing.T) {
	t.Parallel()

	if len(mib.AllCounterNames) == 0 {
		t.Fatal("expected at least one counter name")
	}
	seen := make(map[mib.CounterName]bool)
	for _, n := range mib.AllCounterNames {
		if seen[n] {
			t.Errorf("duplicate counter name %q", n)
		}
		seen[n] = true
	}
}
