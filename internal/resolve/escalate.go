// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"strings"

	"github.com/pdiddy/bibresolve/internal/llm"
	"github.com/pdiddy/bibresolve/pkg/types"
)

// Gate decides when the generative model is worth calling.
type Gate struct {
	Completer    llm.Completer
	MaxTextChars int
}

// ShouldEscalate reports whether to call the model: the search yield was
// poor or the caller forced it, a completer is configured, and there is
// text to send.
func (g Gate) ShouldEscalate(goodYield, force bool, text string) bool {
	if g.Completer == nil || strings.TrimSpace(text) == "" {
		return false
	}
	return force || !goodYield
}

// Extract runs the model over text. The returned record is always usable;
// on failure it is degraded and err says why.
func (g Gate) Extract(ctx context.Context, text string, known types.CandidateRecord) (types.ModelExtraction, error) {
	return llm.Extract(ctx, g.Completer, text, known, g.MaxTextChars)
}
