package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrAgentNotFound  = errors.New("agent not found")
	ErrInvalidRequest = errors.New("invalid request")
)
