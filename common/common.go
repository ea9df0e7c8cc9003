// Package common holds small shared constants and helpers.
package common

// PackageName namespaces metrics and log attributes.
const PackageName = "aquanet"
