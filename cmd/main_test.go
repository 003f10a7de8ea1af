package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSeedStore(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	cases := []struct {
		name      string
		reset     bool
		seeded    bool
		seededErr error
		wantLoad  bool
		wantErr   error
	}{
		{name: "reset always loads", reset: true, seeded: true, wantLoad: true},
		{name: "fresh backend loads", reset: false, seeded: false, wantLoad: true},
		{name: "seeded backend kept", reset: false, seeded: true, wantLoad: false},
		{name: "seeded check fails", reset: false, seededErr: boom, wantErr: boom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loaded := false
			err := seedStore(ctx, tc.reset,
				func(context.Context) (bool, error) { return tc.seeded, tc.seededErr },
				func(context.Context) error {
					loaded = true
					return nil
				},
				zap.NewNop(),
			)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.wantLoad, loaded)
		})
	}
}
