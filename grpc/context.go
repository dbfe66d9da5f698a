// Package grpc carries the authenticated principal from HTTP handlers to gRPC
// services via metadata and enforces the route gate on gRPC methods.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"

	authcore "github.com/gr-backend/authcore"
)

// DefaultMetadataKeyPrincipal is the default gRPC metadata key for the
// authenticated principal key (the canonical email).
const DefaultMetadataKeyPrincipal = "x-principal-key"

// Config holds the metadata key configuration for auth context.
type Config struct {
	// MetadataKeyPrincipal defaults to "x-principal-key".
	MetadataKeyPrincipal string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{MetadataKeyPrincipal: DefaultMetadataKeyPrincipal}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyPrincipal == "" {
		c.MetadataKeyPrincipal = DefaultMetadataKeyPrincipal
	}
}

// PrincipalFromContext extracts the principal key from incoming metadata.
// Returns empty string if no principal is present.
func PrincipalFromContext(ctx context.Context) string {
	return PrincipalFromContextWithConfig(ctx, nil)
}

func PrincipalFromContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeyPrincipal); len(values) > 0 {
		return values[0]
	}
	return ""
}

// PrincipalToOutgoingContext adds the principal key to outgoing metadata.
func PrincipalToOutgoingContext(ctx context.Context, principal string) context.Context {
	return PrincipalToOutgoingContextWithKey(ctx, principal, DefaultMetadataKeyPrincipal)
}

func PrincipalToOutgoingContextWithKey(ctx context.Context, principal string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, principal)
}

// SessionToOutgoingContext forwards the principal of the request's session,
// if any, to downstream gRPC calls. ctx must come from a gated HTTP request.
func SessionToOutgoingContext(ctx context.Context) context.Context {
	sc, ok := authcore.SessionFromContext(ctx)
	if !ok {
		return ctx
	}
	return PrincipalToOutgoingContext(ctx, sc.PrincipalKey)
}

// IsAuthenticated returns true if there is a principal in the context.
func IsAuthenticated(ctx context.Context) bool {
	return PrincipalFromContext(ctx) != ""
}
