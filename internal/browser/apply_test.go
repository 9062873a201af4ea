package browser

import "testing"

// selectorProbe builds a page-state probe from the selectors present on
// the fake page.
func selectorProbe(present ...string) func([]string) bool {
	set := map[string]bool{}
	for _, p := range present {
		set[p] = true
	}
	return func(selectors []string) bool {
		for _, sel := range selectors {
			if set[sel] {
				return true
			}
		}
		return false
	}
}

func TestClassifySubmission(t *testing.T) {
	tests := []struct {
		name    string
		present []string
		want    submitState
	}{
		{
			name:    "success banner confirms",
			present: []string{`.artdeco-inline-feedback--success`},
			want:    submitConfirmed,
		},
		{
			name:    "post-apply modal confirms",
			present: []string{`div[class*="post-apply"]`, applyDialogSelector},
			want:    submitConfirmed,
		},
		{
			name:    "applied marker confirms",
			present: []string{`span.jobs-s-apply__applied-date`},
			want:    submitConfirmed,
		},
		{
			name:    "dialog still open without feedback is pending",
			present: []string{applyDialogSelector},
			want:    submitPending,
		},
		{
			name:    "dialog open with validation error fails",
			present: []string{applyDialogSelector, `[role="alert"]`},
			want:    submitFailed,
		},
		{
			name:    "dialog closed but error feedback shown fails",
			present: []string{`.artdeco-inline-feedback--error`},
			want:    submitFailed,
		},
		{
			name:    "dialog closed quietly counts as accepted",
			present: nil,
			want:    submitConfirmed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySubmission(selectorProbe(tt.present...)); got != tt.want {
				t.Errorf("classifySubmission() = %v, want %v", got, tt.want)
			}
		})
	}
}
