// Package ipam implements the address-plan math: prefix hierarchy
// construction, free-space computation, address allocation, and utilization.
// All functions are pure; callers load the relevant objects from the
// repository and pass them in.
package ipam
