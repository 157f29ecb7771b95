// Package api defines the core data types for the flow tracking engine
//
// This package contains all the shared types used across the tracker,
// including flow and step state, step conditions, probe observations, and
// HTTP messages
package api
