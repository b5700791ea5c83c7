package github

import (
	"testing"

	"github.com/plugdex/plugdex/pkg/errors"
)

func TestParseRepoRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RepoRef
		wantErr bool
	}{
		{"valid", "octo/widgets", RepoRef{Owner: "octo", Repo: "widgets"}, false},
		{"dots and dashes", "my-org/tool.kit_v2", RepoRef{Owner: "my-org", Repo: "tool.kit_v2"}, false},
		{"no slash", "octowidgets", RepoRef{}, true},
		{"extra slash", "octo/widgets/extra", RepoRef{}, true},
		{"empty owner", "/widgets", RepoRef{}, true},
		{"empty repo", "octo/", RepoRef{}, true},
		{"owner starts with hyphen", "-octo/widgets", RepoRef{}, true},
		{"spaces", "octo/has space", RepoRef{}, true},
		{"empty", "", RepoRef{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRepoRef(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRepoRef(%q) expected error", tt.input)
				}
				if !errors.Is(err, errors.ErrCodeInvalidRepoRef) {
					t.Errorf("error code = %v, want INVALID_REPO_REF", errors.GetCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRepoRef(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseRepoRef(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.FullName() != tt.input {
				t.Errorf("FullName() = %q, want %q", got.FullName(), tt.input)
			}
		})
	}
}

func TestValidateOwnerLength(t *testing.T) {
	long := make([]byte, 40)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateOwner(string(long)); err == nil {
		t.Error("40-char owner should be rejected")
	}
	if err := ValidateOwner(string(long[:39])); err != nil {
		t.Errorf("39-char owner should be valid: %v", err)
	}
}
