// Package dcim implements the physical-infrastructure engines: rack
// elevations (per-unit occupancy plus an SVG rendering) and cable tracing
// across pass-through ports. Like package ipam, everything here is pure;
// the caller loads the objects and passes them in.
package dcim
