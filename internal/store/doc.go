// Package store declares the persistence interfaces for users, organizations,
// memberships, invitations, projects and tasks, together with the sentinel
// errors and list options shared by every implementation.
package store
