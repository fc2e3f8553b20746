package relay

import "time"

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	baseDir  string
	user     string
	cacheTTL time.Duration
}

// WithBaseDir sets the relay base directory (default /opt/clawd/projects/relay).
func WithBaseDir(dir string) Option {
	return func(c *clientConfig) { c.baseDir = dir }
}

// WithUser sets the relay user, which selects the queue directory suffix.
func WithUser(user string) Option {
	return func(c *clientConfig) { c.user = user }
}

// WithCacheTTL sets how long a consumed result stays readable after its
// sidecars are deleted, so rapid re-polling still returns the value.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *clientConfig) { c.cacheTTL = ttl }
}
