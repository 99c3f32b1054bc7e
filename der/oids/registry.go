package oids

import "maps"

// OIDInfo represents information about an Object Identifier.
type OIDInfo struct {
	OID         string
	Description string
	Comment     string
	Warning     bool // true if this OID should trigger a warning
}

// Registry holds a collection of OID information.
type Registry struct {
	entries map[string]*OIDInfo
}

// NewRegistry creates a new empty OID registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*OIDInfo),
	}
}

// Register adds an entry to the registry, replacing any previous entry for
// the same OID.
func (r *Registry) Register(info *OIDInfo) {
	r.entries[info.OID] = info
}

// Lookup retrieves OID information by dotted OID string.
func (r *Registry) Lookup(oid string) (*OIDInfo, bool) {
	info, found := r.entries[oid]
	return info, found
}

// LookupDescription returns just the description for an OID, or empty string if not found.
func (r *Registry) LookupDescription(oid string) string {
	if info, found := r.entries[oid]; found {
		return info.Description
	}
	return ""
}

// Count returns the number of OIDs in the registry.
func (r *Registry) Count() int {
	return len(r.entries)
}

// All returns all OID entries in the registry.
func (r *Registry) All() map[string]*OIDInfo {
	// Return a copy to prevent external modification
	result := make(map[string]*OIDInfo, len(r.entries))
	maps.Copy(result, r.entries)
	return result
}

// DefaultRegistry covers the OIDs that show up in CI attestation
// certificates: the EC public key and signature algorithms plus the
// provider claim extensions.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	for _, info := range []*OIDInfo{
		{OID: "1.2.840.10045.2.1", Description: "ecPublicKey"},
		{OID: "1.2.840.10045.3.1.7", Description: "prime256v1"},
		{OID: "1.3.132.0.34", Description: "secp384r1"},
		{OID: "1.2.840.10045.4.3.2", Description: "ecdsa-with-SHA256"},
		{OID: "1.2.840.10045.4.3.3", Description: "ecdsa-with-SHA384"},
		{OID: "2.5.29.17", Description: "subjectAltName"},
		{OID: "2.5.29.15", Description: "keyUsage"},
		{OID: "2.5.29.37", Description: "extKeyUsage"},
		{OID: "2.5.29.35", Description: "authorityKeyIdentifier"},
		{OID: "2.5.29.14", Description: "subjectKeyIdentifier"},
		{OID: "1.3.6.1.4.1.57264.1.1", Description: "oidcIssuer"},
		{OID: "1.3.6.1.4.1.57264.1.2", Description: "workflowTrigger"},
		{OID: "1.3.6.1.4.1.57264.1.3", Description: "workflowSHA"},
		{OID: "1.3.6.1.4.1.57264.1.4", Description: "workflowName"},
		{OID: "1.3.6.1.4.1.57264.1.5", Description: "workflowRepository"},
		{OID: "1.3.6.1.4.1.57264.1.6", Description: "workflowRef"},
	} {
		r.Register(info)
	}
	return r
}()
