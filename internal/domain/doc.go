// Package domain defines the generation record and the values around it:
// request parameters, templates, provider metadata, and analytics events.
//
// A Generation starts PENDING and moves exactly once to COMPLETED or FAILED
// through Complete or Fail. Validate enforces that status and output fields
// agree, so a record read back from storage can be trusted as-is.
package domain
