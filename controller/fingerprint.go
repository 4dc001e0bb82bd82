package controller

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/openscripts/carrot2/attribute"
	"github.com/openscripts/carrot2/chain"
)

// Fingerprint computes the deterministic digest identifying a request for
// caching purposes: a SHA256 over the chain identity and the sorted
// cache-relevant key/value pairs of the input attributes. A key is
// cache-relevant when any component in the chain declares an input
// descriptor for it with the cache-relevant flag set; all other keys are
// ignored, so two requests differing only in non-cache-relevant
// attributes are equivalent.
func Fingerprint(ch *chain.Chain, attrs map[string]any) string {
	return fingerprint(ch, attribute.FromMap(attrs))
}

func fingerprint(ch *chain.Chain, attrs *attribute.Context) string {
	relevant := make(map[string]bool)
	for _, comp := range ch.Components() {
		for _, desc := range comp.Inputs() {
			if desc.Direction == attribute.Output {
				continue
			}
			if desc.CacheRelevant {
				relevant[desc.Key] = true
			}
		}
	}

	keys := attrs.Keys()
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(ch.ID()))
	for _, key := range keys {
		if !relevant[key] {
			continue
		}
		value, _ := attrs.Get(key)
		fmt.Fprintf(h, "\x00%s=%v", key, value)
	}
	return hex.EncodeToString(h.Sum(nil))
}
