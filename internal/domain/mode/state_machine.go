// Пакет mode — режим работы хранилища галереи.
//
// Два режима:
//   - rw — загрузка, удаление, просмотр и скачивание
//   - ro — только просмотр и скачивание (обслуживание диска, бэкап)
//
// Переходы rw ⇄ ro допустимы в обе стороны. Потокобезопасен через sync.RWMutex.
package mode

import (
	"fmt"
	"sync"
	"time"
)

// StorageMode — режим работы хранилища.
type StorageMode string

const (
	// ModeRW — чтение и запись
	ModeRW StorageMode = "rw"
	// ModeRO — только чтение
	ModeRO StorageMode = "ro"
)

// Operation — операция над файлами.
type Operation string

const (
	OpUpload   Operation = "upload"
	OpDownload Operation = "download"
	OpDelete   Operation = "delete"
	OpList     Operation = "list"
)

// TransitionRecord — запись о переходе между режимами.
type TransitionRecord struct {
	From      StorageMode `json:"from"`
	To        StorageMode `json:"to"`
	Timestamp time.Time   `json:"timestamp"`
}

// StateMachine — конечный автомат режимов хранилища.
type StateMachine struct {
	mu      sync.RWMutex
	current StorageMode
	history []TransitionRecord
}

// allowedOperations — матрица допустимых операций для каждого режима.
// Порядок важен для AllowedOperations.
var allowedOperations = map[StorageMode][]Operation{
	ModeRW: {OpUpload, OpDownload, OpDelete, OpList},
	ModeRO: {OpDownload, OpList},
}

// NewStateMachine создаёт конечный автомат с начальным режимом.
func NewStateMachine(initial StorageMode) (*StateMachine, error) {
	if !isValidMode(initial) {
		return nil, fmt.Errorf("недопустимый начальный режим: %q", initial)
	}
	return &StateMachine{
		current: initial,
		history: make([]TransitionRecord, 0),
	}, nil
}

// CurrentMode возвращает текущий режим работы.
func (sm *StateMachine) CurrentMode() StorageMode {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// TransitionTo переключает режим. Переход в текущий режим — ошибка
// INVALID_TRANSITION.
func (sm *StateMachine) TransitionTo(target StorageMode) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !isValidMode(target) {
		return &TransitionError{
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("недопустимый целевой режим: %q", target),
		}
	}
	if target == sm.current {
		return &TransitionError{
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("хранилище уже в режиме %s", target),
		}
	}

	sm.history = append(sm.history, TransitionRecord{
		From:      sm.current,
		To:        target,
		Timestamp: time.Now().UTC(),
	})
	sm.current = target
	return nil
}

// AllowedOperations возвращает список операций, доступных в текущем режиме.
func (sm *StateMachine) AllowedOperations() []Operation {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ops := allowedOperations[sm.current]
	result := make([]Operation, len(ops))
	copy(result, ops)
	return result
}

// CanPerform проверяет, допустима ли операция в текущем режиме.
func (sm *StateMachine) CanPerform(op Operation) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, allowed := range allowedOperations[sm.current] {
		if allowed == op {
			return true
		}
	}
	return false
}

// History возвращает историю переходов (копия).
func (sm *StateMachine) History() []TransitionRecord {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make([]TransitionRecord, len(sm.history))
	copy(result, sm.history)
	return result
}

// TransitionError — ошибка перехода между режимами.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func isValidMode(m StorageMode) bool {
	return m == ModeRW || m == ModeRO
}

// ParseMode преобразует строку в StorageMode.
func ParseMode(s string) (StorageMode, error) {
	m := StorageMode(s)
	if !isValidMode(m) {
		return "", fmt.Errorf("недопустимый режим: %q, допустимые: rw, ro", s)
	}
	return m, nil
}
