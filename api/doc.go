// Package api exposes the application over a JSON HTTP API. Routes are
// grouped NetBox-style under /api/dcim, /api/ipam, /api/virtualization, and
// /api/extras, with /healthz and /metrics outside the authenticated tree.
//
// Every mutation of a tracked object runs through the change pipeline:
// validator scripts may reject the write, and committed writes are recorded
// to the changelog and fanned out to hook scripts and webhooks.
package api
