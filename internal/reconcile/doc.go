// Package reconcile merges the store with the LaunchBox platform document in
// both directions.
//
// Export writes store-owned fields into the document and never touches what
// the frontend owns. Import copies frontend edits back, but only for records
// whose catalog entry changed or was played after the store last saw it.
package reconcile
