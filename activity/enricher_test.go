package activity

import (
	"testing"

	"github.com/goliatone/go-activity/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeIP(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"ipv4", "192.168.1.100", "192.168.1.0"},
		{"ipv4 zeroed already", "10.0.0.0", "10.0.0.0"},
		{"ipv6", "2001:db8::1", ""},
		{"empty", "", ""},
		{"garbage", "not-an-ip", ""},
		{"whitespace", "  192.168.1.100  ", "192.168.1.0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, AnonymizeIP(tc.in))
		})
	}
}

func TestEnrichMetadata(t *testing.T) {
	req := types.RequestMeta{
		IP:       "203.0.113.77",
		Agent:    "Mozilla/5.0",
		CorrelID: "req-123",
	}

	out := EnrichMetadata(map[string]any{"page": "/home"}, req)

	require.Equal(t, "/home", out["page"])
	require.Equal(t, "203.0.113.0", out[MetaKeyIPAddress])
	require.Equal(t, "Mozilla/5.0", out[MetaKeyUserAgent])
	require.Equal(t, "req-123", out[MetaKeyRequestID])
}

func TestEnrichMetadata_NonIPv4Omitted(t *testing.T) {
	out := EnrichMetadata(nil, types.RequestMeta{IP: "2001:db8::1", Agent: "curl"})
	require.NotContains(t, out, MetaKeyIPAddress)
	require.Equal(t, "curl", out[MetaKeyUserAgent])
}

func TestEnrichMetadata_NilRequest(t *testing.T) {
	out := EnrichMetadata(map[string]any{"k": "v"}, nil)
	require.Equal(t, map[string]any{"k": "v"}, out)
}

func TestEnrichMetadata_SanitizeCatchesEnrichedKeys(t *testing.T) {
	// a client can name its metadata keys after request fields; sanitize runs
	// after enrich so a sensitive key sneaking in either way is stripped
	out := SanitizeMetadata(nil, EnrichMetadata(map[string]any{"token": "abc"}, types.RequestMeta{IP: "1.2.3.4"}))
	require.NotContains(t, out, "token")
	require.Equal(t, "1.2.3.0", out[MetaKeyIPAddress])
}
