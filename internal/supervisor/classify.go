package supervisor

import "bytes"

// Classifier decides from captured stderr whether the child ran out of memory
type Classifier func(stderr []byte) bool

// DefaultSignatures are the messages V8 prints on heap exhaustion
var DefaultSignatures = []string{
	"JavaScript heap out of memory",
	"FATAL ERROR: Reached heap limit",
	"Allocation failed",
}

// SignatureClassifier matches stderr against DefaultSignatures plus extra,
// case-sensitively. Blank extra signatures are ignored.
func SignatureClassifier(extra ...string) Classifier {
	signatures := make([][]byte, 0, len(DefaultSignatures)+len(extra))
	for _, s := range DefaultSignatures {
		signatures = append(signatures, []byte(s))
	}
	for _, s := range extra {
		if s != "" {
			signatures = append(signatures, []byte(s))
		}
	}

	return func(stderr []byte) bool {
		for _, sig := range signatures {
			if bytes.Contains(stderr, sig) {
				return true
			}
		}
		return false
	}
}
