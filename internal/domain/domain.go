package domain

// RequestStatus is the lifecycle state of a StakeholderRequest.
type RequestStatus string

const (
	StatusNew              RequestStatus = "new"
	StatusInProgress       RequestStatus = "in_progress"
	StatusGenerated        RequestStatus = "generated"
	StatusSent             RequestStatus = "sent"
	StatusApproved         RequestStatus = "approved"
	StatusChangesRequested RequestStatus = "changes_requested"
)

// RequestStatuses lists every request status.
var RequestStatuses = []RequestStatus{
	StatusNew, StatusInProgress, StatusGenerated, StatusSent, StatusApproved, StatusChangesRequested,
}

// Origin records who created a request.
type Origin string

const (
	OriginStakeholder Origin = "stakeholder"
	OriginBA          Origin = "ba"
)

type ConversationThread struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	Time         string `json:"time,omitempty"`
	Participants string `json:"participants,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type StakeholderRequest struct {
	ID              string               `json:"id"`
	ReqType         string               `json:"reqType"`
	ReqTitle        string               `json:"reqTitle"`
	Owner           string               `json:"owner"`
	Tenant          string               `json:"tenant"`
	Priority        string               `json:"priority"`
	Brief           string               `json:"brief"`
	Threads         []ConversationThread `json:"threads"`
	CreatedAt       string               `json:"createdAt"`
	CreatedBy       Origin               `json:"createdBy"`
	Status          RequestStatus        `json:"status"`
	BRDMaster       *BRDMasterData       `json:"brdMaster,omitempty"`
	AIGeneratedAt   string               `json:"aiGeneratedAt,omitempty"`
	SentAt          string               `json:"sentAt,omitempty"`
	ReviewerComment string               `json:"reviewerComment,omitempty"`
}

// BRDMasterData is the structured BRD content owned by a request.
type BRDMasterData struct {
	Title            string `json:"title" yaml:"title"`
	BU               string `json:"bu" yaml:"bu"`
	Domain           string `json:"domain" yaml:"domain"`
	Product          string `json:"product" yaml:"product"`
	Priority         string `json:"priority" yaml:"priority"`
	Objective        string `json:"objective" yaml:"objective"`
	KPIs             string `json:"kpis" yaml:"kpis"`
	Assumptions      string `json:"assumptions" yaml:"assumptions"`
	Constraints      string `json:"constraints" yaml:"constraints"`
	Tags             string `json:"tags" yaml:"tags"`
	ScopeIn          string `json:"scopeIn" yaml:"scopeIn"`
	ScopeOut         string `json:"scopeOut" yaml:"scopeOut"`
	Channels         string `json:"channels" yaml:"channels"`
	Personas         string `json:"personas" yaml:"personas"`
	Process          string `json:"process" yaml:"process"`
	Sources          string `json:"sources" yaml:"sources"`
	Consumers        string `json:"consumers" yaml:"consumers"`
	RetentionYears   string `json:"retentionYears" yaml:"retentionYears"`
	AuditRequired    string `json:"auditRequired" yaml:"auditRequired"`
	PIIClass         string `json:"piiClass" yaml:"piiClass"`
	RegMap           string `json:"regMap" yaml:"regMap"`
	MIS              string `json:"mis" yaml:"mis"`
	TPS              string `json:"tps" yaml:"tps"`
	Latency          string `json:"latency" yaml:"latency"`
	Availability     string `json:"availability" yaml:"availability"`
	RPO              string `json:"rpo" yaml:"rpo"`
	RTO              string `json:"rto" yaml:"rto"`
	Auth             string `json:"auth" yaml:"auth"`
	SecurityControls string `json:"securityControls" yaml:"securityControls"`
	Observability    string `json:"observability" yaml:"observability"`
}

// FeasibilityStatus is IT's verdict on an approved BRD.
type FeasibilityStatus string

const (
	FeasibilityPending     FeasibilityStatus = "pending"
	FeasibilityFeasible    FeasibilityStatus = "feasible"
	FeasibilityNeedsInfo   FeasibilityStatus = "needs_info"
	FeasibilityNotFeasible FeasibilityStatus = "not_feasible"
)

// FeasibilityStatuses lists every feasibility status in display order.
var FeasibilityStatuses = []FeasibilityStatus{
	FeasibilityPending, FeasibilityFeasible, FeasibilityNeedsInfo, FeasibilityNotFeasible,
}

type FeasibilityState struct {
	RequestID string            `json:"requestId"`
	Status    FeasibilityStatus `json:"status"`
	Notes     string            `json:"notes"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
}

// FinancialDecision is the financial head's verdict on final cost.
type FinancialDecision string

const (
	FinancialApproved    FinancialDecision = "approved"
	FinancialDisapproved FinancialDecision = "disapproved"
)

// Stage is one step of the IT execution pipeline.
type Stage string

const (
	StageITReview            Stage = "it_review"
	StageInternalFeasibility Stage = "internal_feasibility"
	StageFinalCostApproval   Stage = "final_cost_approval"
	StageTimelineShared      Stage = "timeline_shared"
	StageBAFollowUp          Stage = "ba_follow_up"
	StageSIT                 Stage = "sit"
	StageUATDelivery         Stage = "uat_delivery"
)

// Stages is the fixed pipeline order.
var Stages = []Stage{
	StageITReview,
	StageInternalFeasibility,
	StageFinalCostApproval,
	StageTimelineShared,
	StageBAFollowUp,
	StageSIT,
	StageUATDelivery,
}

// StageStatus is the progress of a single stage.
type StageStatus string

const (
	StageNotStarted StageStatus = "not_started"
	StageInProgress StageStatus = "in_progress"
	StageDone       StageStatus = "done"
)

// ValidStage reports whether s names a pipeline stage.
func ValidStage(s Stage) bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// ValidStageStatus reports whether s is a known stage status.
func ValidStageStatus(s StageStatus) bool {
	switch s {
	case StageNotStarted, StageInProgress, StageDone:
		return true
	}
	return false
}

type ITWorkflowState struct {
	RequestID string                `json:"requestId"`
	Stages    map[Stage]StageStatus `json:"stages"`
	Timeline  string                `json:"timeline"`
	SitNotes  string                `json:"sitNotes"`
}

// Normalize fills any missing stage with not_started.
func (w *ITWorkflowState) Normalize() {
	if w.Stages == nil {
		w.Stages = make(map[Stage]StageStatus, len(Stages))
	}
	for _, st := range Stages {
		if !ValidStageStatus(w.Stages[st]) {
			w.Stages[st] = StageNotStarted
		}
	}
}

// Event is one entry of the activity log.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entityKind"`
	EntityID   string         `json:"entityId,omitempty"`
	ActorID    string         `json:"actorId"`
	Payload    map[string]any `json:"payload,omitempty"`
}
