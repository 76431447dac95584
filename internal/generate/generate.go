// Package generate produces simulated AI drafts of BRD master data.
package generate

import (
	"strings"
	"time"

	"brdflow/internal/domain"
)

// Func turns a master draft into a generated one.
type Func func(domain.BRDMasterData) domain.BRDMasterData

// Draft fills blank narrative fields with fixed suggestions. Fields that
// already hold text are left untouched.
func Draft(m domain.BRDMasterData) domain.BRDMasterData {
	fill(&m.Objective, "Reduce processing TAT, improve compliance adherence, and strengthen auditability with maker-checker controls.")
	fill(&m.KPIs, "Reduce turnaround time by 40%\nIncrease straight-through processing to 70%\nReduce manual exceptions by 30%")
	fill(&m.ScopeIn, "Request capture and validation\nMaker-checker approvals\nAudit trail and evidence logging\nStakeholder review workflow")
	fill(&m.ScopeOut, "Legacy process redesign\nDownstream collections process changes")
	fill(&m.RegMap, "RBI KYC Master Direction\nRBI Digital Lending Guidelines\nInternal Information Security Policy")
	fill(&m.SecurityControls, "PII masking\nEncryption at rest and in transit\nRole-based access with MFA\nImmutable audit logs")
	fill(&m.Observability, "Structured logs\nSLA breach alerts\nTrace IDs across workflow stages")
	fill(&m.Process, "As-Is: intake and alignment happen via ad-hoc communication.\nTo-Be: stakeholder request is tracked, BA drafts BRD master, then sends for structured review and approval.")
	return m
}

func fill(field *string, text string) {
	if strings.TrimSpace(*field) == "" {
		*field = text
	}
}

// WithLatency delays every call of fn by d. A nil sleep uses time.Sleep.
func WithLatency(fn Func, d time.Duration, sleep func(time.Duration)) Func {
	if d <= 0 {
		return fn
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return func(m domain.BRDMasterData) domain.BRDMasterData {
		sleep(d)
		return fn(m)
	}
}
