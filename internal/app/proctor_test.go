package app

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"rounds-service/internal/docstore/memory"
	"rounds-service/internal/domain"
	"rounds-service/internal/events"
	"rounds-service/internal/gateway"
	"rounds-service/internal/warnstore"
)

func newProctor(t *testing.T) (*ProctorService, *gateway.Gateway) {
	t.Helper()
	gw := gateway.New(memory.NewStore())
	svc := NewProctorService(gw, warnstore.NewMemory(), 3, "open-sesame", events.Nop{}, zap.NewNop())
	return svc, gw
}

func TestViolationsLockOnFourthStrike(t *testing.T) {
	svc, _ := newProctor(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		out, err := svc.RecordViolation(ctx, "p1", domain.ViolationTabSwitch)
		if err != nil {
			t.Fatalf("violation %d: %v", i, err)
		}
		if out.Locked {
			t.Fatalf("locked after %d warnings, want lock only past 3", i)
		}
		if out.Warnings != i {
			t.Fatalf("warnings = %d, want %d", out.Warnings, i)
		}
	}

	out, err := svc.RecordViolation(ctx, "p1", domain.ViolationDevTools)
	if err != nil {
		t.Fatalf("fourth violation: %v", err)
	}
	if !out.Locked || out.Warnings != 4 {
		t.Fatalf("fourth violation = %+v, want locked with 4 warnings", out)
	}

	// reports while locked are acknowledged but not counted
	out, err = svc.RecordViolation(ctx, "p1", domain.ViolationCopy)
	if err != nil {
		t.Fatalf("violation while locked: %v", err)
	}
	if !out.Locked || out.Warnings != 4 {
		t.Fatalf("locked report = %+v, want unchanged count 4", out)
	}
}

func TestViolationsAreGlobalAcrossRounds(t *testing.T) {
	svc, gw := newProctor(t)
	ctx := context.Background()

	if _, err := svc.RecordViolation(ctx, "p1", domain.ViolationCopy); err != nil {
		t.Fatalf("violation: %v", err)
	}
	if _, err := svc.RecordViolation(ctx, "p1", domain.ViolationWindowBlur); err != nil {
		t.Fatalf("violation: %v", err)
	}

	log, err := gw.GetAntiCheatLog(ctx, "p1")
	if err != nil {
		t.Fatalf("get log: %v", err)
	}
	if log.Warnings != 2 || log.LastViolation != domain.ViolationWindowBlur {
		t.Fatalf("log = %+v, want 2 warnings with last window_blur", log)
	}
}

func TestUnlockResetsWarnings(t *testing.T) {
	svc, gw := newProctor(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := svc.RecordViolation(ctx, "p1", domain.ViolationPaste); err != nil {
			t.Fatalf("violation: %v", err)
		}
	}
	locked, err := svc.Locked(ctx, "p1")
	if err != nil || !locked {
		t.Fatalf("locked = %v err = %v, want locked", locked, err)
	}

	if err := svc.Unlock(ctx, "p1", "wrong"); !errors.Is(err, domain.ErrBadPassphrase) {
		t.Fatalf("wrong passphrase: got %v, want ErrBadPassphrase", err)
	}

	if err := svc.Unlock(ctx, "p1", "open-sesame"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	status, err := svc.Status(ctx, "p1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Locked || status.Warnings != 0 {
		t.Fatalf("status after unlock = %+v, want zero warnings unlocked", status)
	}

	log, err := gw.GetAntiCheatLog(ctx, "p1")
	if err != nil {
		t.Fatalf("get log: %v", err)
	}
	if log.Warnings != 0 || log.UnlockedAt == 0 {
		t.Fatalf("log after unlock = %+v, want reset with unlockedAt set", log)
	}
}

func TestCounterReseedsFromDurableLog(t *testing.T) {
	store := memory.NewStore()
	gw := gateway.New(store)
	first := NewProctorService(gw, warnstore.NewMemory(), 3, "open-sesame", events.Nop{}, zap.NewNop())
	ctx := context.Background()

	if _, err := first.RecordViolation(ctx, "p1", domain.ViolationCut); err != nil {
		t.Fatalf("violation: %v", err)
	}
	if _, err := first.RecordViolation(ctx, "p1", domain.ViolationCut); err != nil {
		t.Fatalf("violation: %v", err)
	}

	// fresh counters, same document store: a restart must not forget warnings
	second := NewProctorService(gw, warnstore.NewMemory(), 3, "open-sesame", events.Nop{}, zap.NewNop())
	out, err := second.RecordViolation(ctx, "p1", domain.ViolationCut)
	if err != nil {
		t.Fatalf("violation after restart: %v", err)
	}
	if out.Warnings != 3 {
		t.Fatalf("warnings after restart = %d, want 3", out.Warnings)
	}
}
