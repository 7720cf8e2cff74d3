package domain

// ObjectKind identifies the type of a tracked object. Kinds follow the
// "app.model" convention so changelog entries, webhooks, and scripts can be
// scoped to specific object types.
type ObjectKind string

const (
	KindSite           ObjectKind = "dcim.site"
	KindRack           ObjectKind = "dcim.rack"
	KindDeviceType     ObjectKind = "dcim.devicetype"
	KindDevice         ObjectKind = "dcim.device"
	KindInterface      ObjectKind = "dcim.interface"
	KindCable          ObjectKind = "dcim.cable"
	KindPrefix         ObjectKind = "ipam.prefix"
	KindIPAddress      ObjectKind = "ipam.ipaddress"
	KindVLAN           ObjectKind = "ipam.vlan"
	KindCluster        ObjectKind = "virtualization.cluster"
	KindVirtualMachine ObjectKind = "virtualization.virtualmachine"
)

// AllKinds lists every object kind that participates in change tracking.
func AllKinds() []ObjectKind {
	return []ObjectKind{
		KindSite, KindRack, KindDeviceType, KindDevice, KindInterface,
		KindCable, KindPrefix, KindIPAddress, KindVLAN, KindCluster,
		KindVirtualMachine,
	}
}

// Valid reports whether the kind is one of the tracked object kinds.
func (k ObjectKind) Valid() bool {
	for _, known := range AllKinds() {
		if k == known {
			return true
		}
	}
	return false
}
