package document_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brdflow/internal/document"
	"brdflow/internal/domain"
)

// uniqueMaster gives every field a distinct marker value.
func uniqueMaster(t *testing.T) domain.BRDMasterData {
	t.Helper()
	var m domain.BRDMasterData
	for i, f := range domain.MasterFields {
		require.NoError(t, m.Set(f.Key, fmt.Sprintf("value-%02d-%s", i, f.Key)))
	}
	return m
}

func TestBuildIsPure(t *testing.T) {
	r := domain.StakeholderRequest{ID: "r", ReqTitle: "Renewal", Status: domain.StatusSent, SentAt: "2026-02-03T10:00:00Z"}
	m := uniqueMaster(t)
	assert.Equal(t, document.Build(r, m), document.Build(r, m))
}

func TestBuildContainsEveryFieldOnce(t *testing.T) {
	m := uniqueMaster(t)
	out := document.Build(domain.StakeholderRequest{Status: domain.StatusNew}, m)
	for i, f := range domain.MasterFields {
		marker := fmt.Sprintf("value-%02d-%s", i, f.Key)
		assert.Equal(t, 1, strings.Count(out, marker), "field %s", f.Key)
	}
}

func TestBuildBlankFieldsRenderTBD(t *testing.T) {
	m := domain.BRDMasterData{Objective: "   ", Product: "\t"}
	out := document.Build(domain.StakeholderRequest{}, m)
	lines := strings.Split(out, "\n")
	assert.Equal(t, "Objective", lines[6])
	assert.Equal(t, "TBD", lines[7])
	assert.Contains(t, lines, "- Product: TBD")
	assert.Contains(t, lines, "Effective Date: TBD")
	assert.Contains(t, lines, "- Reviewer Comment: TBD")
	assert.NotContains(t, out, ": \n")
}

func TestVersionAndHeader(t *testing.T) {
	tests := []struct {
		status  domain.RequestStatus
		version string
	}{
		{domain.StatusNew, "0.5"},
		{domain.StatusInProgress, "0.5"},
		{domain.StatusChangesRequested, "0.5"},
		{domain.StatusGenerated, "1.0"},
		{domain.StatusSent, "1.0"},
		{domain.StatusApproved, "1.0"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			out := document.Build(domain.StakeholderRequest{Status: tt.status, CreatedAt: "2026-01-05T08:00:00Z"}, domain.BRDMasterData{})
			lines := strings.Split(out, "\n")
			assert.Equal(t, document.Heading, lines[0])
			assert.Equal(t, "BRD Document", lines[1])
			assert.Equal(t, "Version no.: "+tt.version, lines[3])
			assert.Equal(t, "Effective Date: 2026-01-05", lines[4])
		})
	}
}

func TestEffectiveDatePrefersLatestStep(t *testing.T) {
	r := domain.StakeholderRequest{CreatedAt: "2026-01-01T00:00:00Z", AIGeneratedAt: "2026-01-02T00:00:00Z"}
	assert.Equal(t, "2026-01-02", document.EffectiveDate(r))
	r.SentAt = "2026-01-03T00:00:00Z"
	assert.Equal(t, "2026-01-03", document.EffectiveDate(r))
}

func TestStatusLabel(t *testing.T) {
	out := document.Build(domain.StakeholderRequest{Status: domain.StatusChangesRequested}, domain.BRDMasterData{})
	assert.Contains(t, out, "- Status: changes requested")
}
