package mask_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"brdflow/internal/mask"
)

func TestMaskNamedTerms(t *testing.T) {
	m := mask.Default()
	tests := []struct {
		in, want string
	}{
		{"RBL BANK portal", "ABC BANK portal"},
		{"rblbank portal", "ABC BANK portal"},
		{"RBL team", "ABC team"},
		{"Integrate with Finacle and Sarthak", "Integrate with CORE_SYSTEM_X and LOS_PLATFORM_X"},
		{"PHL and AHL and MSME", "PRODUCT_Z and PRODUCT_X and PRODUCT_Y"},
		{"cibil, posidex, ramp", "BUREAU_X, VENDOR_X, ENGINE_X"},
		{"NCR / MPCG", "REGION_1 / REGION_2"},
		{"RAMPART and PHLX stay", "RAMPART and PHLX stay"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Mask(tt.in))
		})
	}
}

func TestMaskContactDetails(t *testing.T) {
	m := mask.Default()
	assert.Equal(t, "mail user@mock.example now", m.Mask("mail ops.lead+brd@rbl.co.in now"))
	assert.Equal(t, "call XXXXXXXXXX", m.Mask("call 98765 43210"))
	assert.Equal(t, "acct XXXXXXXXXX", m.Mask("acct 123456789012"))
	assert.Equal(t, "short 1234567 stays", m.Mask("short 1234567 stays"))
}

func TestMaskExtraTerms(t *testing.T) {
	m := mask.New([]mask.Term{{Term: "Acme Corp", Replacement: "ORG_X"}, {Term: "  "}})
	assert.Equal(t, "ORG_X and ABC", m.Mask("acme   corp and RBL"))
	assert.Len(t, m.Rules(), len(mask.DefaultTerms)+1+3)
}

func TestMaskIsIdempotent(t *testing.T) {
	m := mask.Default()
	once := m.Mask("RBL BANK, a@b.com, 9876543210")
	assert.Equal(t, once, m.Mask(once))
}
