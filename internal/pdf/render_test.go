package pdf

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brdflow/internal/domain"
	"brdflow/internal/mask"
)

func sampleRequest() domain.StakeholderRequest {
	return domain.StakeholderRequest{
		ID:        "req-1",
		ReqTitle:  "Home loan renewals",
		Owner:     "Retail Lending",
		Tenant:    "RBL BANK",
		Status:    domain.StatusSent,
		CreatedAt: "2026-01-05T08:00:00Z",
		SentAt:    "2026-01-09T08:00:00Z",
	}
}

func uncompressed() Renderer {
	opts := DefaultOptions()
	opts.Compress = false
	return New(opts)
}

func TestRenderMasksConfidentialText(t *testing.T) {
	req := sampleRequest()
	m := domain.DefaultMaster(req)
	m.Objective = "Coordinate with ops.lead@lender.co.in on FINACLE and CIBIL pulls"
	m.Sources = "POSIDEX dedupe\nCall 9876543210 for escalations"

	out, err := uncompressed().Render(req, m)
	require.NoError(t, err)
	raw := string(out.Bytes)

	for _, secret := range []string{"ops.lead@", "RBL", "FINACLE", "CIBIL", "POSIDEX", "9876543210", "PHL"} {
		assert.NotContains(t, raw, secret)
	}
	for _, placeholder := range []string{"user@mock.example", "CORE_SYSTEM_X", "BUREAU_X", "VENDOR_X", "XXXXXXXXXX", "PRODUCT_Z", "ABC BANK"} {
		assert.Contains(t, raw, placeholder)
	}
	assert.Contains(t, raw, "Effective Date : 2026-01-09")
}

func TestRenderMasksProcessBeforeSplittingLines(t *testing.T) {
	m := domain.BRDMasterData{Process: "Escalate to 98765\n43210 on failure\n\nClose ticket"}

	out, err := uncompressed().Render(sampleRequest(), m)
	require.NoError(t, err)
	raw := string(out.Bytes)
	assert.NotContains(t, raw, "98765")
	assert.NotContains(t, raw, "43210")
	assert.Contains(t, raw, "XXXXXXXXXX")
	assert.Contains(t, raw, "Close ticket")
}

func TestProcessLines(t *testing.T) {
	m := mask.Default()
	assert.Equal(t, []string{"TBD"}, processLines(m.Mask, "  \n "))
	assert.Equal(t, []string{"Call XXXXXXXXXXtoday", "Then close"}, processLines(m.Mask, "Call 98765\n43210 today\n  Then close  "))
}

func TestRenderExtraTerms(t *testing.T) {
	opts := DefaultOptions()
	opts.Compress = false
	opts.Masker = mask.New([]mask.Term{{Term: "Acme", Replacement: "ORG_X"}})
	m := domain.BRDMasterData{Objective: "Acme onboarding"}

	out, err := New(opts).Render(sampleRequest(), m)
	require.NoError(t, err)
	assert.NotContains(t, string(out.Bytes), "Acme")
	assert.Contains(t, string(out.Bytes), "ORG_X onboarding")
}

func TestRenderIsDeterministic(t *testing.T) {
	req := sampleRequest()
	m := domain.DefaultMaster(req)
	r := New(DefaultOptions())

	first, err := r.Render(req, m)
	require.NoError(t, err)
	second, err := r.Render(req, m)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first.Bytes, second.Bytes))
	assert.True(t, bytes.HasPrefix(first.Bytes, []byte("%PDF-")))
}

func TestRenderPagesAndFooters(t *testing.T) {
	out, err := uncompressed().Render(sampleRequest(), domain.BRDMasterData{})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Pages)
	for _, footer := range []string{"Page | 1", "Page | 2", "Page | 3"} {
		assert.Contains(t, string(out.Bytes), footer)
	}
	assert.Contains(t, string(out.Bytes), "Objective")
	assert.Contains(t, string(out.Bytes), "TBD")
}

func TestRenderLongContentOverflows(t *testing.T) {
	m := domain.BRDMasterData{Process: strings.Repeat("Step with enough words to wrap across the line width\n", 60)}
	out, err := uncompressed().Render(sampleRequest(), m)
	require.NoError(t, err)
	assert.Greater(t, out.Pages, 3)
	assert.Contains(t, string(out.Bytes), "Page | 4")
}

func newTestLayout(t *testing.T) (*fpdf.Fpdf, *layout) {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.SetAutoPageBreak(false, 0)
	l := newLayout(doc, "Header")
	l.pageH = 297
	l.newPage()
	return doc, l
}

func TestParagraphThatFitsExactlyDoesNotPaginate(t *testing.T) {
	_, l := newTestLayout(t)
	l.y = l.safeBottom() - 6
	l.paragraph("one line", textStyle{})
	assert.Equal(t, 1, l.page)
	assert.InDelta(t, l.safeBottom(), l.y, 1e-9)
}

func TestParagraphCrossingSafeBottomPaginates(t *testing.T) {
	doc, l := newTestLayout(t)
	l.y = l.safeBottom() - 5.9
	l.paragraph("one line", textStyle{})
	assert.Equal(t, 2, l.page)
	assert.InDelta(t, contentTop+6, l.y, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	assert.Contains(t, buf.String(), "Page | 2")
}

func TestBulletsPaginatePerItem(t *testing.T) {
	_, l := newTestLayout(t)
	l.y = l.safeBottom() - 8
	l.bullets([]string{"first", "  ", "second"}, true)
	assert.Equal(t, 2, l.page)
	assert.InDelta(t, contentTop+8, l.y, 1e-9)
}

func TestWrapKeepsLinesWithinWidth(t *testing.T) {
	doc, l := newTestLayout(t)
	l.setFont(11, false, bodyColor)
	width := 60.0
	lines := l.wrap("alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu\nsecond paragraph "+strings.Repeat("x", 80), width)
	require.Greater(t, len(lines), 3)
	for _, line := range lines {
		assert.LessOrEqual(t, doc.GetStringWidth(line), width, "line %q", line)
	}
	assert.Equal(t, "alpha", strings.Fields(lines[0])[0])
}
