package domain

// NoLimit disables paging when set as a filter's Limit. Engines that need
// the complete data set, like cable tracing, must not be cut off at a page
// boundary.
const NoLimit = -1

// Repository aggregates every per-entity repository contract. The db package
// provides the SQLite-backed implementation; the root package and the HTTP
// API depend only on this interface.
type Repository interface {
	SiteRepository
	RackRepository
	DeviceRepository
	InterfaceRepository
	CableRepository
	PrefixRepository
	IPAddressRepository
	VLANRepository
	VirtualizationRepository
	ChangeRepository
	WebhookRepository
	ScriptRepository
	AttachmentRepository

	Close() error
}
