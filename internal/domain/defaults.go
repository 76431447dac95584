package domain

import "fmt"

// MasterField describes one BRDMasterData field.
type MasterField struct {
	Key   string
	Label string
}

// MasterFields lists every BRDMasterData field in declaration order.
var MasterFields = []MasterField{
	{"title", "Title"},
	{"bu", "Business Unit"},
	{"domain", "Domain"},
	{"product", "Product"},
	{"priority", "Priority"},
	{"objective", "Objective"},
	{"kpis", "Success Metrics / KPIs"},
	{"assumptions", "Assumptions"},
	{"constraints", "Constraints"},
	{"tags", "Tags"},
	{"scopeIn", "In Scope"},
	{"scopeOut", "Out of Scope"},
	{"channels", "Channels"},
	{"personas", "Personas"},
	{"process", "Process"},
	{"sources", "Upstream Data Sources"},
	{"consumers", "Downstream Consumers"},
	{"retentionYears", "Retention Years"},
	{"auditRequired", "Audit Required"},
	{"piiClass", "PII Class"},
	{"regMap", "Regulatory Mapping"},
	{"mis", "MIS / Reporting"},
	{"tps", "Peak TPS / Concurrency"},
	{"latency", "Latency"},
	{"availability", "Availability"},
	{"rpo", "RPO"},
	{"rto", "RTO"},
	{"auth", "AuthN/AuthZ"},
	{"securityControls", "Security Controls"},
	{"observability", "Observability"},
}

func (m *BRDMasterData) field(key string) (*string, error) {
	switch key {
	case "title":
		return &m.Title, nil
	case "bu":
		return &m.BU, nil
	case "domain":
		return &m.Domain, nil
	case "product":
		return &m.Product, nil
	case "priority":
		return &m.Priority, nil
	case "objective":
		return &m.Objective, nil
	case "kpis":
		return &m.KPIs, nil
	case "assumptions":
		return &m.Assumptions, nil
	case "constraints":
		return &m.Constraints, nil
	case "tags":
		return &m.Tags, nil
	case "scopeIn":
		return &m.ScopeIn, nil
	case "scopeOut":
		return &m.ScopeOut, nil
	case "channels":
		return &m.Channels, nil
	case "personas":
		return &m.Personas, nil
	case "process":
		return &m.Process, nil
	case "sources":
		return &m.Sources, nil
	case "consumers":
		return &m.Consumers, nil
	case "retentionYears":
		return &m.RetentionYears, nil
	case "auditRequired":
		return &m.AuditRequired, nil
	case "piiClass":
		return &m.PIIClass, nil
	case "regMap":
		return &m.RegMap, nil
	case "mis":
		return &m.MIS, nil
	case "tps":
		return &m.TPS, nil
	case "latency":
		return &m.Latency, nil
	case "availability":
		return &m.Availability, nil
	case "rpo":
		return &m.RPO, nil
	case "rto":
		return &m.RTO, nil
	case "auth":
		return &m.Auth, nil
	case "securityControls":
		return &m.SecurityControls, nil
	case "observability":
		return &m.Observability, nil
	}
	return nil, fmt.Errorf("unknown master field %q", key)
}

// Get returns the value of the named field.
func (m BRDMasterData) Get(key string) (string, error) {
	p, err := m.field(key)
	if err != nil {
		return "", err
	}
	return *p, nil
}

// Set assigns the named field.
func (m *BRDMasterData) Set(key, value string) error {
	p, err := m.field(key)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

// DefaultMaster seeds a first BRD draft from the request's intake fields.
func DefaultMaster(r StakeholderRequest) BRDMasterData {
	return BRDMasterData{
		Title:       orDefault(r.ReqTitle, "Digital Loan Origination (LOS) — Retail Term Loan"),
		BU:          orDefault(r.Owner, "Retail Lending"),
		Domain:      "Lending / LOS",
		Product:     "Retail Term Loan",
		Priority:    orDefault(r.Priority, "P2"),
		Objective:   orDefault(r.Brief, "Reduce onboarding turnaround time and improve policy compliance via rule-driven eligibility, automated KYC/AML checks, and audit-grade approvals."),
		KPIs:        "Reduce TAT from 2 days to 2 hours\nIncrease conversion by 12%\nReduce manual exceptions by 40%",
		Assumptions: "CKYC and bureau services available 99.5%+\nBranch users trained on maker-checker\nDMS supports versioned docs",
		Constraints: "Must integrate with existing CBS & LMS\nAudit retention 8 years\nPII must be masked by default",
		Tags:        "NBFC, KYC, AML, Audit, Maker-Checker",
		ScopeIn:     "Digital onboarding with CKYC prefill\nEligibility + pricing rule engine (FOIR/DSCR/LTV)\nMaker-checker approvals with SLAs\nAudit trail & evidence logs",
		ScopeOut:    "Collections module changes\nGeneral ledger posting changes",
		Channels:    "Branch, DSA, Web, API",
		Personas:    "Customer, DSA, RM, Credit Officer, Risk, Compliance, InfoSec",
		Process:     "As-Is: manual document collection and approval tracking.\nTo-Be: rule-driven eligibility, automated checks, staged approvals with evidence, exportable audit pack.",
		Sources:     "Credit Bureau\nBank statement aggregator\nCBS\nCRM\nDMS\nAML screening",
		Consumers:   "LMS\nCBS\nDWH/MIS\nRegulatory reporting",

		RetentionYears:   "8",
		AuditRequired:    "Yes",
		PIIClass:         "High",
		RegMap:           "RBI KYC Master Direction\nRBI Digital Lending Guidelines\nInternal Credit Policy CP-RTL-2026",
		MIS:              "TAT by channel\nException rate\nPolicy overrides by approver\nAudit extracts (monthly)",
		TPS:              "200 TPS / 2,000 concurrent",
		Latency:          "P95 < 300ms (eligibility); P95 < 1s (document validation)",
		Availability:     "99.9%",
		RPO:              "15 min",
		RTO:              "2 hours",
		Auth:             "SSO + MFA + RBAC",
		SecurityControls: "PII masking in UI\nEncryption at rest/in transit\nHSM keys\nMaker-checker for overrides\nImmutable audit logs",
		Observability:    "Correlation/trace IDs\nCentralized logs\nAlerting on SLA breaches\nAudit dashboards",
	}
}

// DefaultFeasibility is the record created on first IT review visit.
func DefaultFeasibility(requestID string) FeasibilityState {
	return FeasibilityState{
		RequestID: requestID,
		Status:    FeasibilityPending,
	}
}

// DefaultWorkflow starts the pipeline with it_review in progress.
func DefaultWorkflow(requestID string) ITWorkflowState {
	stages := make(map[Stage]StageStatus, len(Stages))
	for _, st := range Stages {
		stages[st] = StageNotStarted
	}
	stages[StageITReview] = StageInProgress
	return ITWorkflowState{
		RequestID: requestID,
		Stages:    stages,
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
