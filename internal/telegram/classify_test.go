package telegram

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyEdit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want EditOutcome
	}{
		{"nil error", nil, EditOK},
		{"not modified", errors.New("Bad Request: message is not modified"), EditUnchanged},
		{"not modified mixed case", errors.New("bad request: Message Is Not Modified: blah"), EditUnchanged},
		{"edit target deleted", errors.New("Bad Request: message to edit not found"), EditTargetMissing},
		{"cannot edit", errors.New("Bad Request: message can't be edited"), EditTargetMissing},
		{"generic missing", errors.New("Bad Request: message not found"), EditTargetMissing},
		{"rate limited", errors.New("Too Many Requests: retry after 5"), EditFailed},
		{"network error", fmt.Errorf("do request: %w", errors.New("connection refused")), EditFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyEdit(tc.err); got != tc.want {
				t.Errorf("ClassifyEdit(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestEditOutcomeString(t *testing.T) {
	if EditTargetMissing.String() != "target_missing" {
		t.Errorf("unexpected label %q", EditTargetMissing.String())
	}
	if EditOutcome(99).String() != "unknown" {
		t.Errorf("unexpected label for out-of-range outcome")
	}
}
