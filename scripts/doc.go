// Package scripts runs user-supplied Lua programs against object changes.
// Validator scripts run before a write commits and can reject it; hook
// scripts run after the commit and observe the change. Each run gets a fresh
// Lua state with the change exposed as globals and a small `netbox` library.
package scripts
