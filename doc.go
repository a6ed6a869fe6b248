// Package auth implements the authentication and session core for the
// campus alumni/student network: an identity-provider adapter contract,
// an observable session store, role-gated route guarding, and the
// multi-step registration workflow.
//
// Session lifecycle:
//   - SessionStore subscribes to an IdentityProvider and joins each
//     identity notification with its stored Profile document. Profile
//     fetches are tagged with a sequence number so a slow fetch for a
//     superseded identity can never overwrite a newer session.
//   - Snapshot exposes the derived state (session + loading flag) to
//     renderers through a publish/subscribe contract with explicit
//     teardown via Close.
//
// Route guarding:
//   - EvaluateRoute is a pure decision function over a Snapshot and the
//     role a route requires. HTTPRouteGuard and FiberRouteGuard execute
//     its decisions as redirects, remembering the rejected location so
//     login can return the user where they were headed.
//
// Registration:
//   - RegistrationFlow drives the RoleSelect -> PersonalInfo ->
//     AcademicInfo -> AccountSetup -> Submitting flow with per-step
//     validation. Provider failures keep the draft intact for retry.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing sign-in,
//     sign-up, sign-out, and verification events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue
//     without blocking authentication.
package auth
