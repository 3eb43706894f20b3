package activity

import (
	"net"
	"strings"

	"github.com/goliatone/go-activity/pkg/types"
)

// Enrichment metadata keys. These are flat JSON keys and should remain stable.
const (
	MetaKeyIPAddress = "ip_address"
	MetaKeyUserAgent = "user_agent"
	MetaKeyRequestID = "request_id"
)

// EnrichMetadata merges request-derived fields into a copy of metadata. The
// client address is anonymized before it is stored; a non-IPv4 or empty
// address is omitted entirely rather than stored malformed. Enrichment runs
// before sanitization so any sensitive key it introduces is still stripped.
func EnrichMetadata(metadata map[string]any, req types.RequestInfo) map[string]any {
	out := cloneMap(metadata)
	if req == nil {
		return out
	}
	if ip := AnonymizeIP(req.RemoteIP()); ip != "" {
		out[MetaKeyIPAddress] = ip
	}
	if agent := strings.TrimSpace(req.UserAgent()); agent != "" {
		out[MetaKeyUserAgent] = agent
	}
	if id := strings.TrimSpace(req.RequestID()); id != "" {
		out[MetaKeyRequestID] = id
	}
	return out
}

// AnonymizeIP truncates an IPv4 address by zeroing its last octet. Anything
// that does not parse as IPv4 returns "" so callers drop it.
func AnonymizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	v4 := ip.To4()
	if v4 == nil || !strings.Contains(raw, ".") {
		return ""
	}
	masked := make(net.IP, len(v4))
	copy(masked, v4)
	masked[3] = 0
	return masked.String()
}
