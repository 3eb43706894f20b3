package activity

import (
	"sync"

	"github.com/goliatone/go-masker"
)

// sensitiveKeys is the fixed block-list of metadata keys that must never be
// persisted. Matching keys are stripped silently, not rejected.
var sensitiveKeys = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"credit_card",
	"ssn",
}

// SensitiveKeys returns the metadata block-list.
func SensitiveKeys() []string {
	out := make([]string, len(sensitiveKeys))
	copy(out, sensitiveKeys)
	return out
}

var defaultMaskerOnce sync.Once

// DefaultMasker returns a configured masker instance with the default
// sensitive fields registered. It is optional: SanitizeMetadata with a nil
// masker still strips the block-list.
func DefaultMasker() *masker.Masker {
	defaultMaskerOnce.Do(func() {
		if masker.Default == nil {
			return
		}
		registerDefaultMaskFields(masker.Default)
	})
	return masker.Default
}

// SanitizeMetadata returns a copy of metadata with every block-listed key
// removed. All other keys pass through unchanged, which makes the operation
// idempotent. When a masker is supplied, surviving values get a second,
// value-level masking pass.
func SanitizeMetadata(mask *masker.Masker, metadata map[string]any) map[string]any {
	out := cloneMap(metadata)
	for _, key := range sensitiveKeys {
		delete(out, key)
	}
	if mask == nil || len(out) == 0 {
		return out
	}
	masked, err := mask.Mask(out)
	if err != nil {
		return out
	}
	if m, ok := masked.(map[string]any); ok {
		return m
	}
	return out
}

func registerDefaultMaskFields(mask *masker.Masker) {
	if mask == nil {
		return
	}
	mask.RegisterMaskField("secret", "filled4")
	mask.RegisterMaskField("password", "filled4")
}
