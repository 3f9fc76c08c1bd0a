package gateway

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mockmate/mockmate/internal/config"
	"github.com/mockmate/mockmate/internal/interview"
	"github.com/mockmate/mockmate/internal/llm"
	"github.com/mockmate/mockmate/internal/store"
)

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"empty list denies", "http://a.example", nil, false},
		{"exact match", "http://a.example", []string{"http://a.example"}, true},
		{"wildcard", "http://anything.example", []string{"*"}, true},
		{"no match", "http://b.example", []string{"http://a.example"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isOriginAllowed(tt.origin, tt.allowed))
		})
	}
}

func TestResolveBindAddr(t *testing.T) {
	cfg := config.ServerConfig{Port: 18990}

	cfg.Bind = "loopback"
	assert.Equal(t, "127.0.0.1:18990", resolveBindAddr(cfg))

	cfg.Bind = "lan"
	assert.Equal(t, "0.0.0.0:18990", resolveBindAddr(cfg))

	cfg.Bind = "custom"
	cfg.CustomBindHost = "10.0.0.5"
	assert.Equal(t, "10.0.0.5:18990", resolveBindAddr(cfg))

	cfg.Bind = "bogus"
	assert.Equal(t, "127.0.0.1:18990", resolveBindAddr(cfg))
}

func TestStatusForErrorMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(interview.ErrEmptyProblem))
	assert.Equal(t, http.StatusBadRequest, statusFor(interview.ErrNotStarted))
	assert.Equal(t, http.StatusConflict, statusFor(interview.ErrBusy))
	assert.Equal(t, http.StatusConflict, statusFor(interview.ErrSuperseded))
	assert.Equal(t, http.StatusUnauthorized, statusFor(store.ErrNotAuthenticated))
	assert.Equal(t, http.StatusNotFound, statusFor(store.ErrSessionNotFound))
	assert.Equal(t, http.StatusBadGateway, statusFor(llm.ErrEmptyOrBlocked))
	assert.Equal(t, http.StatusBadGateway, statusFor(&llm.TransportError{StatusCode: 503}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("anything else")))
}
