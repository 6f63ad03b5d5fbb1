// Package payqr provides the core of a payment QR code service: bearer
// tokens bound to permission sets, an authorization manager that checks
// them, and an append-only access log describing every completed request.
//
// # Key Components
//
//   - Token: credential with a permission set, presented as an opaque secret
//   - AccessManager: resolves a presented secret and checks route permissions
//   - TokenRepo / AccessLogRepo / TemplateRepo: persistence interfaces
//     (SQLite, PostgreSQL, config-backed token store, file-backed audit log)
//   - AccessRecord: one audit entry per completed request
//
// # Authorization Model
//
// A route declares a required permission set. A token is authorized for the
// route iff its permissions are a superset of the required set. Routes with
// an empty required set are anonymous: they always authorize, but a
// presented secret is still resolved so the access log attributes the call
// to the right token.
//
//	mgr := payqr.NewAccessManager(repos.Tokens)
//	tok, err := mgr.Authorize(ctx, secret, payqr.Permissions{payqr.PermGenerate})
//
// See the http package for the route table and dispatcher, the codec
// package for the QR payment code encoding, and the database packages for
// metadata backends.
package payqr
