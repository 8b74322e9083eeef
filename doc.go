// Package authapi exposes a JSON authentication API: user registration,
// credential login/logout, profile management, password change/reset, and
// per-user audit log retrieval.
//
// Token lifecycle:
//   - Tokens are HS256 JWTs carrying registered claims plus a uid field and a
//     unique jti. Logout records the jti in a revocation store until the token
//     would expire on its own; Validate rejects revoked ids, so a logged-out
//     token can never resolve to an identity again.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to describe
//     login and logout events. The bun-backed AuditTrailSink persists them as
//     append-only AuditLog rows; sinks run best-effort (errors are logged) so
//     auditing never blocks authentication.
//
// Collaborators:
//   - Persistence is delegated to repositories over uptrace/bun, mail delivery
//     to the Mailer interface (SMTP via gomail, or a logger-backed fallback),
//     and credential verification to an IdentityProvider.
package authapi
