package naming

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTXTResolver serves canned TXT records per query name.
type mockTXTResolver struct {
	records map[string][]string
	err     error
}

func (m *mockTXTResolver) LookupTXT(name string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	txts, ok := m.records[name]
	if !ok {
		return nil, errors.New("no such host")
	}
	return txts, nil
}

func TestResolveDNSLink(t *testing.T) {
	name := testPointerName("ab")
	resolver := &mockTXTResolver{records: map[string][]string{
		"_dnslink.vault.example.com": {"dnslink=/cbns/" + name},
	}}

	got, err := ResolveDNSLinkWithResolver("vault.example.com", resolver)
	require.NoError(t, err)
	assert.Equal(t, name, got)
}

func TestResolveDNSLinkSkipsUnrelatedRecords(t *testing.T) {
	name := testPointerName("cd")
	resolver := &mockTXTResolver{records: map[string][]string{
		"_dnslink.vault.example.com": {
			"v=spf1 -all",
			"  dnslink=/cbns/" + name + "  ",
			"dnslink=/cbns/" + testPointerName("ef"),
		},
	}}

	got, err := ResolveDNSLinkWithResolver("vault.example.com", resolver)
	require.NoError(t, err)
	assert.Equal(t, name, got, "first matching record wins, whitespace trimmed")
}

func TestResolveDNSLinkErrors(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		resolver TXTResolver
		wantErr  error
	}{
		{
			name:     "empty domain",
			domain:   "",
			resolver: &mockTXTResolver{},
			wantErr:  ErrDNSLookupFailed,
		},
		{
			name:     "lookup failure",
			domain:   "vault.example.com",
			resolver: &mockTXTResolver{err: errors.New("timeout")},
			wantErr:  ErrDNSLookupFailed,
		},
		{
			name:   "no matching record",
			domain: "vault.example.com",
			resolver: &mockTXTResolver{records: map[string][]string{
				"_dnslink.vault.example.com": {"v=spf1 -all"},
			}},
			wantErr: ErrNoDNSLinkRecord,
		},
		{
			name:   "malformed pointer name",
			domain: "vault.example.com",
			resolver: &mockTXTResolver{records: map[string][]string{
				"_dnslink.vault.example.com": {"dnslink=/cbns/not-forty-hex"},
			}},
			wantErr: ErrInvalidPointerName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveDNSLinkWithResolver(tt.domain, tt.resolver)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewDNSSECResolverDefaultsUpstream(t *testing.T) {
	r := NewDNSSECResolver("")
	assert.Equal(t, "8.8.8.8:53", r.Upstream)

	r = NewDNSSECResolver("1.1.1.1:53")
	assert.Equal(t, "1.1.1.1:53", r.Upstream)
}
