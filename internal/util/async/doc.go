// Package async provides small helpers for running independent operations
// concurrently and collecting the first error, used when the orchestration
// manager resumes many stored jobs at startup.
package async
