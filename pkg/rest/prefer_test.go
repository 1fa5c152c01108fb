package rest

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrefer(t *testing.T) {
	tests := []struct {
		header      string
		wantMinimal bool
	}{
		{"", false},
		{"return=minimal", true},
		{`return="minimal"`, true},
		{"respond-async, RETURN=Minimal", true},
		{"return=representation", false},
		{"return=headers-only", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("POST", "/api/accounts", nil)
		if tt.header != "" {
			r.Header.Set(headerPrefer, tt.header)
		}
		assert.Equal(t, tt.wantMinimal, parsePrefer(r).WantsMinimal(), tt.header)
	}

	assert.Nil(t, parsePrefer(httptest.NewRequest("GET", "/", nil)))
}

func TestApplyPrefer(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/accounts", nil)
	r.Header.Set(headerPrefer, "return=minimal")
	w := httptest.NewRecorder()
	res := &Result{}

	applyPrefer(w, r, res)
	assert.True(t, res.Minimal)
	assert.Equal(t, "return=minimal", w.Header().Get(headerPreferenceApplied))
}
