package models

import "encoding/json"

// MetadataLimits bounds a metadata record. The serialized size is measured on
// the JSON encoding, which is also how metadata is persisted.
type MetadataLimits struct {
	MaxTags            int
	MaxCustomFields    int
	MaxStringLen       int
	MaxSerializedBytes int
}

var (
	EscrowMetadataLimits  = MetadataLimits{MaxTags: 20, MaxCustomFields: 10, MaxStringLen: 128, MaxSerializedBytes: 1024}
	ProgramMetadataLimits = MetadataLimits{MaxTags: 30, MaxCustomFields: 15, MaxStringLen: 256, MaxSerializedBytes: 2048}
)

// EscrowMetadata is optional descriptive data attached to an escrow,
// settable only by the escrow's depositor.
type EscrowMetadata struct {
	RepoID       *string           `json:"repo_id,omitempty"`
	IssueID      *string           `json:"issue_id,omitempty"`
	BountyType   *string           `json:"bounty_type,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

func (m *EscrowMetadata) Validate() error {
	return validateMetadata(m, EscrowMetadataLimits,
		[]*string{m.RepoID, m.IssueID, m.BountyType}, m.Tags, m.CustomFields)
}

// ProgramMetadata is optional descriptive data attached to the payout pool,
// settable only by the authorized payout key. Same shape as EscrowMetadata
// but with larger limits.
type ProgramMetadata struct {
	EventName    *string           `json:"event_name,omitempty"`
	EventType    *string           `json:"event_type,omitempty"`
	StartDate    *string           `json:"start_date,omitempty"`
	EndDate      *string           `json:"end_date,omitempty"`
	Website      *string           `json:"website,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

func (m *ProgramMetadata) Validate() error {
	return validateMetadata(m, ProgramMetadataLimits,
		[]*string{m.EventName, m.EventType, m.StartDate, m.EndDate, m.Website}, m.Tags, m.CustomFields)
}

func validateMetadata(record any, limits MetadataLimits, fields []*string, tags []string, custom map[string]string) error {
	if len(tags) > limits.MaxTags {
		return ErrMetadataTooLarge
	}
	if len(custom) > limits.MaxCustomFields {
		return ErrMetadataTooLarge
	}
	for _, f := range fields {
		if f != nil && len(*f) > limits.MaxStringLen {
			return ErrMetadataTooLarge
		}
	}
	for _, tag := range tags {
		if len(tag) > limits.MaxStringLen {
			return ErrMetadataTooLarge
		}
	}
	for k, v := range custom {
		if len(k) > limits.MaxStringLen || len(v) > limits.MaxStringLen {
			return ErrMetadataTooLarge
		}
	}

	serialized, err := json.Marshal(record)
	if err != nil {
		return ErrMetadataTooLarge
	}
	if len(serialized) > limits.MaxSerializedBytes {
		return ErrMetadataTooLarge
	}
	return nil
}
