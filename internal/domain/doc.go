// Package domain contains the core business entities of the annotation
// platform's organization and dataset layer: organizations, memberships,
// invitations, projects and annotation tasks. It is independent of any
// storage or delivery mechanism.
package domain
