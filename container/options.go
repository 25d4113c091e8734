package container

type ownConfig struct {
	propagate bool
}

// OwnOption configures owning mode.
type OwnOption func(c *ownConfig)

// WithoutEventPropagation stops the list from re-emitting the events of its
// items.
func WithoutEventPropagation() OwnOption {
	return func(c *ownConfig) {
		c.propagate = false
	}
}
