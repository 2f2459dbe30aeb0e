// Package memory keeps activity rows in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"dompet/internal/sheets"
)

type ActivityLog struct {
	mu   sync.Mutex
	rows []sheets.ActivityRow
	// Fail, when set, is returned by the next append and then cleared.
	Fail error
}

var _ sheets.ActivityWriter = (*ActivityLog)(nil)

func New() *ActivityLog {
	return &ActivityLog{}
}

// AppendActivity stores the rows and returns a synthetic row reference.
func (l *ActivityLog) AppendActivity(_ context.Context, rows ...sheets.ActivityRow) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Fail != nil {
		err := l.Fail
		l.Fail = nil
		return "", err
	}
	l.rows = append(l.rows, rows...)
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (l *ActivityLog) Rows() []sheets.ActivityRow {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.ActivityRow(nil), l.rows...)
}
