// Package gcsstore implements the conditional-write store on Google Cloud
// Storage, the production target for queue documents. The store's generation
// is the GCS object generation; Save maps the expected generation onto a GCS
// write precondition, so the conflict-detection guarantee is enforced
// server-side by GCS itself.
package gcsstore
