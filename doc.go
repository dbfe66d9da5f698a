// Package authcore reconciles two credential sources, a GitHub OAuth login and a
// local email/password pair, into one session-scoped identity.
//
// # Architecture
//
// Identity normalizer: FromOAuthClaims and FromLocalCredential map provider claims
// or a local email onto one UserIdentity. Provider users without an email get the
// placeholder <login>@<provider>.local so the email key is always present.
//
// Directory: users live in an external directory reached through a DirectoryStore
// (PostgREST, gorm, Cloud Datastore or local JSON files, see the stores packages).
// DirectoryClient treats lookups as best effort and always surfaces insert failures.
//
// Sessions: SessionManager keeps a SessionContext inside an scs session. The
// context is created on login or registration, read on every request and
// destroyed on logout. Session data lives in memory, or in Redis with stores/redis.
//
// Gate: RouteGate classifies each path as public or session-requiring and rejects
// unauthenticated requests before any handler runs.
//
// # Basic Usage
//
//	sessions := authcore.NewSessionManager(scs.New())
//	directory := authcore.NewDirectoryClient(postgrest.New(postgrest.Config{
//	    BaseURL: os.Getenv("SUPABASE_URL"),
//	    APIKey:  os.Getenv("SUPABASE_API_KEY"),
//	}))
//	orchestrator := authcore.NewOrchestrator(directory, sessions)
//
//	api := &authcore.API{Auth: orchestrator, LoginSuccessURL: "http://localhost:5173/dashboard"}
//	router := mux.NewRouter()
//	api.RegisterRoutes(router, "/api")
//
//	gate := &authcore.RouteGate{Sessions: sessions}
//	http.ListenAndServe(":8080", sessions.LoadAndSave(gate.Wrap(router)))
//
// # Security
//
// Passwords are hashed with bcrypt. Login failures for unknown accounts,
// provider-only accounts and wrong passwords are indistinguishable to clients.
// The session token is renewed whenever a principal is established.
package authcore
