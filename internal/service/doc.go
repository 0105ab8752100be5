// Package service contains the application use cases of the annotator API:
// organization, membership and invitation management, and the dataset
// export/import requests that are handed to the background job runner.
//
// Services receive their stores through constructor injection and authorize
// every operation through an iam.Policy. Operations that touch more than one
// store run inside store.RunInTransaction.
//
// Error handling:
//   - Expected conditions (not found, duplicates, validation failures,
//     forbidden actions) are returned as the sentinel errors of the store,
//     domain and service packages so callers can use errors.Is.
//   - Everything else is wrapped in a *ServiceError naming the service and
//     operation that failed.
//
// Objects the caller is not allowed to see are reported as not found, so
// the API does not reveal whether they exist.
package service
