// Package output renders command results: bench reports, live bench progress
// and JSON documents.
package output
