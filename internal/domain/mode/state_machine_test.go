package mode

import (
	"errors"
	"sync"
	"testing"
)

// TestNewStateMachine проверяет создание конечного автомата.
func TestNewStateMachine(t *testing.T) {
	tests := []struct {
		mode    StorageMode
		wantErr bool
	}{
		{ModeRW, false},
		{ModeRO, false},
		{StorageMode("edit"), true},
		{StorageMode(""), true},
	}

	for _, tt := range tests {
		sm, err := NewStateMachine(tt.mode)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewStateMachine(%q): ожидалась ошибка", tt.mode)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewStateMachine(%q): неожиданная ошибка: %v", tt.mode, err)
			continue
		}
		if sm.CurrentMode() != tt.mode {
			t.Errorf("CurrentMode(): ожидалось %q, получено %q", tt.mode, sm.CurrentMode())
		}
	}
}

// TestTransitions_RoundTrip проверяет переходы rw → ro → rw и историю.
func TestTransitions_RoundTrip(t *testing.T) {
	sm, _ := NewStateMachine(ModeRW)

	if err := sm.TransitionTo(ModeRO); err != nil {
		t.Fatalf("rw → ro: неожиданная ошибка: %v", err)
	}
	if sm.CurrentMode() != ModeRO {
		t.Errorf("ожидался режим ro, получен %q", sm.CurrentMode())
	}
	if err := sm.TransitionTo(ModeRW); err != nil {
		t.Fatalf("ro → rw: неожиданная ошибка: %v", err)
	}

	history := sm.History()
	if len(history) != 2 {
		t.Fatalf("ожидалось 2 записи истории, получено %d", len(history))
	}
	if history[0].From != ModeRW || history[0].To != ModeRO {
		t.Errorf("первая запись: %+v", history[0])
	}
}

// TestTransitions_Invalid проверяет отказ для недопустимых переходов.
func TestTransitions_Invalid(t *testing.T) {
	sm, _ := NewStateMachine(ModeRW)

	for _, target := range []StorageMode{ModeRW, StorageMode("ar")} {
		err := sm.TransitionTo(target)
		var te *TransitionError
		if !errors.As(err, &te) {
			t.Fatalf("переход в %q: ожидалась TransitionError, получено %v", target, err)
		}
		if te.Code != "INVALID_TRANSITION" {
			t.Errorf("ожидался код INVALID_TRANSITION, получен %q", te.Code)
		}
	}
	if sm.CurrentMode() != ModeRW {
		t.Errorf("режим не должен измениться, получен %q", sm.CurrentMode())
	}
}

// TestCanPerform проверяет матрицу операций.
func TestCanPerform(t *testing.T) {
	tests := []struct {
		mode StorageMode
		op   Operation
		want bool
	}{
		{ModeRW, OpUpload, true},
		{ModeRW, OpDelete, true},
		{ModeRW, OpList, true},
		{ModeRW, OpDownload, true},
		{ModeRO, OpUpload, false},
		{ModeRO, OpDelete, false},
		{ModeRO, OpList, true},
		{ModeRO, OpDownload, true},
	}

	for _, tt := range tests {
		sm, _ := NewStateMachine(tt.mode)
		if got := sm.CanPerform(tt.op); got != tt.want {
			t.Errorf("CanPerform(%s) в режиме %s: ожидалось %v, получено %v", tt.op, tt.mode, tt.want, got)
		}
	}

	sm, _ := NewStateMachine(ModeRO)
	if ops := sm.AllowedOperations(); len(ops) != 2 {
		t.Errorf("AllowedOperations в ro: ожидалось 2, получено %v", ops)
	}
}

// TestConcurrentAccess проверяет потокобезопасность.
func TestConcurrentAccess(t *testing.T) {
	sm, _ := NewStateMachine(ModeRW)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = sm.CanPerform(OpUpload)
			_ = sm.CurrentMode()
		}()
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = sm.TransitionTo(ModeRO)
			} else {
				_ = sm.TransitionTo(ModeRW)
			}
		}(i)
	}
	wg.Wait()

	m := sm.CurrentMode()
	if m != ModeRW && m != ModeRO {
		t.Errorf("недопустимый режим после конкурентного доступа: %q", m)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("ro"); err != nil || m != ModeRO {
		t.Errorf("ParseMode(ro): %q, %v", m, err)
	}
	if _, err := ParseMode("edit"); err == nil {
		t.Error("ParseMode(edit): ожидалась ошибка")
	}
}
