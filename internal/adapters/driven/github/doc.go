// Package github implements the remote source port against the GitHub
// REST API, with request throttling and retry on transient failures.
package github
