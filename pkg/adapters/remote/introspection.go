package remote

import (
	"github.com/aretw0/introspection"

	"github.com/aretw0/sparti/pkg/core"
)

// ClientState exposes internal state for observability.
type ClientState struct {
	BaseURL  string `json:"base_url"`
	ReadOnly bool   `json:"read_only"`
	Requests int64  `json:"requests"`
	Failures int64  `json:"failures"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	return ClientState{
		BaseURL:  c.base.String(),
		ReadOnly: c.config.ReadOnly,
		Requests: c.requests.Load(),
		Failures: c.failures.Load(),
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "remote-repository"
}

var _ introspection.Introspectable = (*Client)(nil)
var _ introspection.Component = (*Client)(nil)
var _ core.Repository = (*Client)(nil)
var _ core.Uploader = (*Client)(nil)
