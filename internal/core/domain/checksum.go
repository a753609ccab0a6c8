package domain

// ChecksumVector maps service names to checksums for one namespace.
type ChecksumVector struct {
	NamespaceID string            `json:"namespaceId"`
	Entries     map[string]string `json:"serviceName2Checksum"`
}

// RepairTask asks the sync mechanism to fetch the authoritative copy of a
// service from SourceAddress.
type RepairTask struct {
	NamespaceID   string `json:"namespaceId"`
	ServiceName   string `json:"serviceName"`
	SourceAddress string `json:"sourceAddress"`
	Checksum      string `json:"checksum"`
}

// RepairKey identifies a pending repair task.
type RepairKey struct {
	NamespaceID   string
	ServiceName   string
	SourceAddress string
}

// Key returns the dedup key of the task.
func (t RepairTask) Key() RepairKey {
	return RepairKey{
		NamespaceID:   t.NamespaceID,
		ServiceName:   t.ServiceName,
		SourceAddress: t.SourceAddress,
	}
}
