// Package config provides server configuration for RegMesh.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (addresses, factors, membership mode)
//   - sanitize.go: Log sanitization (hide the cluster identity value)
//   - cluster.go, convert.go: conversion into component configurations
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config
