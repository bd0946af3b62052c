package main

import (
	"flag"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/rice-ledger/internal/config"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

func TestOwnerFlagResolve(t *testing.T) {
	owner := uuid.New()
	fallback := uuid.New()

	tests := []struct {
		name    string
		flag    string
		env     string
		want    uuid.UUID
		wantErr bool
	}{
		{name: "flag wins", flag: owner.String(), env: fallback.String(), want: owner},
		{name: "falls back to config", env: fallback.String(), want: fallback},
		{name: "neither set", wantErr: true},
		{name: "not a uuid", flag: "warehouse-7", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := ownerFlag{raw: tc.flag}
			got, err := o.resolve(&config.Config{LedgerOwner: tc.env})
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQueryFlags(t *testing.T) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var qf queryFlags
	qf.SetFlags(fs)
	require.NoError(t, fs.Parse([]string{"-search", "balaji", "-status", "PENDING", "-from", "01-03-2025", "-sort", "netAmt", "-desc"}))

	q, err := qf.query()
	require.NoError(t, err)
	assert.Equal(t, "balaji", q.Search)
	assert.Equal(t, "PENDING", q.Status)
	assert.Equal(t, "2025-03-01", q.From)
	assert.Equal(t, domain.FieldNetAmount, q.SortBy)
	assert.True(t, q.Desc)
}

func TestQueryFlagsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		qf   queryFlags
	}{
		{name: "bad date", qf: queryFlags{from: "March 1st"}},
		{name: "unknown sort field", qf: queryFlags{sort: "colour"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.qf.query()
			assert.Error(t, err)
		})
	}
}
