package normalize

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/roshinpv1/promptshield/internal/model"
)

// Fingerprint computes a stable hash over (library, category, risk_type,
// evidence_prompt), grounded on the teacher's internal/finding/deduplication.go
// computeHash. It lets a downstream summarizer group recurring findings
// across executions (SPEC_FULL.md §11.2) without the core collapsing rows —
// Finding rows stay immutable per spec.md §3.
func Fingerprint(f model.Finding) string {
	h := sha256.New()
	h.Write([]byte(f.Library))
	h.Write([]byte{0})
	h.Write([]byte(f.TestCategory))
	h.Write([]byte{0})
	h.Write([]byte(f.RiskType))
	h.Write([]byte{0})
	h.Write([]byte(f.EvidencePrompt))
	return hex.EncodeToString(h.Sum(nil))
}
