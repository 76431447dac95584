// Package document assembles the plain-text BRD from a request and its
// master data.
package document

import (
	"strings"

	"brdflow/internal/domain"
)

// Heading is the first line of every document.
const Heading = "LOS FOR PRIME HOME LOAN (PHL)"

// TBD replaces blank values.
const TBD = "TBD"

// Clean trims v and substitutes TBD when nothing is left.
func Clean(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return TBD
	}
	return v
}

// Version is 1.0 once a draft has been generated, else 0.5.
func Version(status domain.RequestStatus) string {
	switch status {
	case domain.StatusGenerated, domain.StatusSent, domain.StatusApproved:
		return "1.0"
	}
	return "0.5"
}

// EffectiveDate is the date part of the latest lifecycle timestamp.
func EffectiveDate(r domain.StakeholderRequest) string {
	for _, ts := range []string{r.SentAt, r.AIGeneratedAt, r.CreatedAt} {
		ts = strings.TrimSpace(ts)
		if ts == "" {
			continue
		}
		if i := strings.IndexByte(ts, 'T'); i > 0 {
			return ts[:i]
		}
		return ts
	}
	return TBD
}

// StatusLabel renders a status for humans, e.g. "changes requested".
func StatusLabel(s domain.RequestStatus) string {
	return strings.Replace(string(s), "_", " ", 1)
}

// Build renders the BRD text. It depends only on its arguments.
func Build(r domain.StakeholderRequest, m domain.BRDMasterData) string {
	lines := []string{
		Heading,
		"BRD Document",
		"Document Title: " + Clean(m.Title),
		"Version no.: " + Version(r.Status),
		"Effective Date: " + EffectiveDate(r),
		"",
		"Objective",
		Clean(m.Objective),
		"",
		"Scope:",
		"- Product: " + Clean(m.Product),
		"- Business Unit / Function: " + Clean(m.BU),
		"- Domain: " + Clean(m.Domain),
		"- Priority: " + Clean(m.Priority),
		"- In Scope: " + Clean(m.ScopeIn),
		"- Out of Scope: " + Clean(m.ScopeOut),
		"",
		"Process -",
		Clean(m.Process),
		"",
		"Policy Parameters",
		"- Tags: " + Clean(m.Tags),
		"- Personas: " + Clean(m.Personas),
		"- Channels: " + Clean(m.Channels),
		"",
		"General Product and Policy Norms to be updated in system",
		"- Assumptions: " + Clean(m.Assumptions),
		"- Constraints: " + Clean(m.Constraints),
		"- Regulatory Mapping: " + Clean(m.RegMap),
		"",
		"System Changes – Mobile Application / LOS",
		"- Customer Type, Eligibility, and underwriting capture will be enabled as per policy setup.",
		"- Security Controls: " + Clean(m.SecurityControls),
		"- AuthN/AuthZ: " + Clean(m.Auth),
		"",
		"Income Eligibility and Program Inputs",
		"- Success Metrics / KPIs: " + Clean(m.KPIs),
		"- Upstream Data Sources: " + Clean(m.Sources),
		"- Downstream Consumers: " + Clean(m.Consumers),
		"",
		"Data / Reporting / Regulatory",
		"- Retention Years: " + Clean(m.RetentionYears),
		"- Audit Required: " + Clean(m.AuditRequired),
		"- PII Class: " + Clean(m.PIIClass),
		"- MIS / Reporting: " + Clean(m.MIS),
		"",
		"NFR Baseline",
		"- Peak TPS / Concurrency: " + Clean(m.TPS),
		"- Latency: " + Clean(m.Latency),
		"- Availability: " + Clean(m.Availability),
		"- RPO: " + Clean(m.RPO),
		"- RTO: " + Clean(m.RTO),
		"- Observability: " + Clean(m.Observability),
		"",
		"Review / Approval",
		"- Request Title: " + Clean(r.ReqTitle),
		"- Owner: " + Clean(r.Owner),
		"- Tenant: " + Clean(r.Tenant),
		"- Status: " + Clean(StatusLabel(r.Status)),
		"- Reviewer Comment: " + Clean(r.ReviewerComment),
	}
	return strings.Join(lines, "\n")
}
