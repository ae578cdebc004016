// internal/data/loans_test.go
package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoanIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dueDate time.Time
		want    bool
	}{
		{"due in the future", now.Add(48 * time.Hour), false},
		{"due exactly now", now, false},
		{"due in the past", now.Add(-time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := Loan{DueDate: tt.dueDate}
			assert.Equal(t, tt.want, loan.IsOverdue(now))
		})
	}
}

func TestLoanDaysRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dueDate time.Time
		want    int
	}{
		{"a fresh loan has the full period left", now.Add(LoanPeriod), 28},
		{"partial days round up", now.Add(90 * time.Minute), 1},
		{"exactly one day", now.Add(24 * time.Hour), 1},
		{"due right now", now, 0},
		{"overdue by less than a day still rounds up to zero", now.Add(-90 * time.Minute), 0},
		{"overdue by a day and a half", now.Add(-36 * time.Hour), -1},
		{"long overdue", now.Add(-3 * 24 * time.Hour), -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := Loan{DueDate: tt.dueDate}
			assert.Equal(t, tt.want, loan.DaysRemaining(now))
		})
	}
}
