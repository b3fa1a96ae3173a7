package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/xpak/format"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "help", err: &flags.Error{Type: flags.ErrHelp}, want: 0},
		{name: "cancelled", err: fmt.Errorf("pack error: %w", format.NewCancelledError(context.Canceled)), want: 130},
		{name: "bad magic", err: &format.Error{Kind: format.KindBadMagic}, want: 3},
		{name: "count mismatch", err: &format.Error{Kind: format.KindCountMismatch}, want: 3},
		{name: "invalid json", err: &format.Error{Kind: format.KindInvalidJSON}, want: 2},
		{name: "other", err: errors.New("boom"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
