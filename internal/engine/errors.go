package engine

import "github.com/rotisserie/eris"

// Terminal error kinds surfaced by Analyze. Everything else degrades
// internally and is reported through Analysis.Warnings.
var (
	// ErrInvalidRequest marks a request rejected by up-front validation.
	ErrInvalidRequest = eris.New("engine: invalid request")

	// ErrCancelled marks a co-operatively cancelled analysis. No partial
	// results are returned (caches may retain entries).
	ErrCancelled = eris.New("engine: analysis cancelled")
)
