// Package bookstore implements an online bookstore backend: account
// registration with email verification, JWT session issuance, role gated
// catalog management, and CSV bulk import.
//
// Accounts:
//   - Users register with an email and password. Passwords are hashed with
//     bcrypt and transparently re-hashed on login when the configured cost
//     increases.
//   - New accounts receive a single-use verification token that expires
//     after fifteen minutes. Verification mail is delivered asynchronously
//     through the notify package and never blocks registration.
//
// Sessions:
//   - Login issues a stateless HS256 JWT carrying the account email as the
//     subject and the account role as a custom claim. Tokens are accepted
//     from either the access_token cookie or an Authorization bearer
//     header.
//
// Catalog:
//   - Books are publicly listable with pagination. Mutations (create,
//     patch, delete, CSV import, cover upload) require the admin role,
//     enforced by the Protected and RequireRole middleware.
package bookstore
