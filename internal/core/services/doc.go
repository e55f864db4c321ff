// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// All I/O goes through the driven ports, so services stay free of
// storage and transport concerns.
package services
