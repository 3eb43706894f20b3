package types

// RequestInfo is the capability interface the ingestion pipeline needs from a
// transport request. It deliberately exposes only the three fields used for
// metadata enrichment so the pipeline stays decoupled from any HTTP framework.
type RequestInfo interface {
	RemoteIP() string
	UserAgent() string
	RequestID() string
}

// RequestMeta is a plain-value RequestInfo for callers that already extracted
// the fields (queue consumers, tests).
type RequestMeta struct {
	IP       string
	Agent    string
	CorrelID string
}

// RemoteIP implements RequestInfo.
func (m RequestMeta) RemoteIP() string { return m.IP }

// UserAgent implements RequestInfo.
func (m RequestMeta) UserAgent() string { return m.Agent }

// RequestID implements RequestInfo.
func (m RequestMeta) RequestID() string { return m.CorrelID }
