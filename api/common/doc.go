// Package common provides configuration and logging utilities shared across
// the canvas server components.
//
// The package focuses on:
//   - Configuration structure for the HTTP server and its subsystems
//   - Custom logging implementation with consistent formatting across
//     the application
//
// Key Components:
//
//   - ServerConfig: Comprehensive configuration for the canvas server,
//     including the HTTP endpoint, serialization, write throttling, heatmap
//     and hotspot parameters, and logging. Provides a formatted String
//     representation printed at startup.
//
//   - Logger: Custom logging implementation providing the "LEVEL | name |
//     message" format used by every package logger.
package common
