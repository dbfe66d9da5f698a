package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authcore "github.com/gr-backend/authcore"
)

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	*Config

	// RequireAuth when true rejects unauthenticated calls to non-public methods.
	RequireAuth bool

	// PublicMethods uses the route gate's pattern syntax against full method
	// names, e.g. "/health.Health/Check" or "/auth.Public/**".
	PublicMethods []string
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:      DefaultConfig(),
		RequireAuth: true,
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig()
	config.PublicMethods = publicMethods
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig() *InterceptorConfig {
	return &InterceptorConfig{Config: DefaultConfig()}
}

func (c *InterceptorConfig) ensureDefaults() *InterceptorConfig {
	if c == nil {
		c = DefaultInterceptorConfig()
	}
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	return c
}

// Classify applies the route gate's classifier to a full method name.
func (c *InterceptorConfig) Classify(fullMethod string) authcore.RouteClass {
	return authcore.ClassifyPath(c.PublicMethods, fullMethod)
}

func (c *InterceptorConfig) check(ctx context.Context, fullMethod string) error {
	if !c.RequireAuth || c.Classify(fullMethod) == authcore.Public {
		return nil
	}
	if PrincipalFromContextWithConfig(ctx, c.Config) == "" {
		return status.Error(codes.Unauthenticated, "Not authenticated")
	}
	return nil
}

// UnaryAuthInterceptor returns a gRPC unary interceptor enforcing the gate.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config = config.ensureDefaults()
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := config.check(ctx, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a gRPC stream interceptor enforcing the gate.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config = config.ensureDefaults()
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := config.check(ss.Context(), info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}
