// Package iam decides what a user may see and do with organizations,
// memberships, and invitations.
//
// A Context is resolved once per request: the authenticated user, the
// organization selected with the "org" query parameter or the
// X-Organization header, and the user's membership in it. Permission types
// derived from a Policy narrow list queries (Filter) and authorize single
// actions (Check); denials wrap domain.ErrForbidden.
package iam
