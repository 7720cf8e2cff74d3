// Package webhook delivers object change notifications to subscribed HTTP
// endpoints. Deliveries run on a background worker behind a bounded queue so
// a slow endpoint never stalls the write path.
package webhook
