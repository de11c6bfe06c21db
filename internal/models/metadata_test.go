package models

import (
	"errors"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestEscrowMetadataValidate(t *testing.T) {
	makeTags := func(n int) []string {
		tags := make([]string, n)
		for i := range tags {
			tags[i] = "tag"
		}
		return tags
	}
	makeFields := func(n int) map[string]string {
		fields := make(map[string]string, n)
		for i := 0; i < n; i++ {
			fields[strings.Repeat("k", i+1)] = "v"
		}
		return fields
	}

	tests := []struct {
		name    string
		md      EscrowMetadata
		wantErr bool
	}{
		{"empty", EscrowMetadata{}, false},
		{"typical", EscrowMetadata{
			RepoID:       strPtr("owner/repo"),
			IssueID:      strPtr("123"),
			BountyType:   strPtr("bug"),
			Tags:         []string{"priority-high", "security"},
			CustomFields: map[string]string{"difficulty": "medium"},
		}, false},
		{"max tags", EscrowMetadata{Tags: makeTags(20)}, false},
		{"too many tags", EscrowMetadata{Tags: makeTags(21)}, true},
		{"max custom fields", EscrowMetadata{CustomFields: makeFields(10)}, false},
		{"too many custom fields", EscrowMetadata{CustomFields: makeFields(11)}, true},
		{"string at limit", EscrowMetadata{RepoID: strPtr(strings.Repeat("a", 128))}, false},
		{"string too long", EscrowMetadata{RepoID: strPtr(strings.Repeat("a", 129))}, true},
		{"tag too long", EscrowMetadata{Tags: []string{strings.Repeat("a", 129)}}, true},
		{"custom value too long", EscrowMetadata{CustomFields: map[string]string{"k": strings.Repeat("a", 129)}}, true},
		{"serialized too large", EscrowMetadata{
			// 10 tags x 120 chars blows past 1024 bytes without breaking any
			// per-item limit.
			Tags: []string{
				strings.Repeat("a", 120), strings.Repeat("b", 120), strings.Repeat("c", 120),
				strings.Repeat("d", 120), strings.Repeat("e", 120), strings.Repeat("f", 120),
				strings.Repeat("g", 120), strings.Repeat("h", 120), strings.Repeat("i", 120),
				strings.Repeat("j", 120),
			},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.md.Validate()
			if tt.wantErr && !errors.Is(err, ErrMetadataTooLarge) {
				t.Errorf("Validate() = %v, want ErrMetadataTooLarge", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestProgramMetadataValidate(t *testing.T) {
	makeTags := func(n int) []string {
		tags := make([]string, n)
		for i := range tags {
			tags[i] = "tag"
		}
		return tags
	}

	tests := []struct {
		name    string
		md      ProgramMetadata
		wantErr bool
	}{
		{"typical", ProgramMetadata{
			EventName: strPtr("Hackathon 2026"),
			EventType: strPtr("hackathon"),
			StartDate: strPtr("2026-06-01"),
			EndDate:   strPtr("2026-06-30"),
			Website:   strPtr("https://hackathon.example.org"),
			Tags:      []string{"blockchain", "defi"},
		}, false},
		{"program allows 21 tags", ProgramMetadata{Tags: makeTags(21)}, false},
		{"max tags", ProgramMetadata{Tags: makeTags(30)}, false},
		{"too many tags", ProgramMetadata{Tags: makeTags(31)}, true},
		{"string at 256", ProgramMetadata{Website: strPtr(strings.Repeat("a", 256))}, false},
		{"string over 256", ProgramMetadata{Website: strPtr(strings.Repeat("a", 257))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.md.Validate()
			if tt.wantErr && !errors.Is(err, ErrMetadataTooLarge) {
				t.Errorf("Validate() = %v, want ErrMetadataTooLarge", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
