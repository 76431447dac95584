package domain_test

import (
	"testing"

	"brdflow/internal/domain"
)

func TestMasterFieldsRoundTrip(t *testing.T) {
	var m domain.BRDMasterData
	for _, f := range domain.MasterFields {
		if err := m.Set(f.Key, "v-"+f.Key); err != nil {
			t.Fatalf("set %s: %v", f.Key, err)
		}
	}
	for _, f := range domain.MasterFields {
		got, err := m.Get(f.Key)
		if err != nil {
			t.Fatalf("get %s: %v", f.Key, err)
		}
		if got != "v-"+f.Key {
			t.Fatalf("field %s = %q", f.Key, got)
		}
	}
	if len(domain.MasterFields) != 30 {
		t.Fatalf("expected 30 master fields, got %d", len(domain.MasterFields))
	}
}

func TestMasterUnknownField(t *testing.T) {
	var m domain.BRDMasterData
	if err := m.Set("nope", "x"); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestDefaultWorkflow(t *testing.T) {
	w := domain.DefaultWorkflow("r-1")
	if len(w.Stages) != len(domain.Stages) {
		t.Fatalf("expected %d stages, got %d", len(domain.Stages), len(w.Stages))
	}
	for _, st := range domain.Stages {
		want := domain.StageNotStarted
		if st == domain.StageITReview {
			want = domain.StageInProgress
		}
		if w.Stages[st] != want {
			t.Fatalf("stage %s = %s, want %s", st, w.Stages[st], want)
		}
	}
}

func TestNormalizeFillsMissingStages(t *testing.T) {
	w := domain.ITWorkflowState{
		RequestID: "r-1",
		Stages:    map[domain.Stage]domain.StageStatus{domain.StageSIT: domain.StageDone},
	}
	w.Normalize()
	if w.Stages[domain.StageSIT] != domain.StageDone {
		t.Fatalf("existing stage overwritten")
	}
	if w.Stages[domain.StageITReview] != domain.StageNotStarted {
		t.Fatalf("missing stage not filled: %s", w.Stages[domain.StageITReview])
	}
}

func TestDefaultMasterUsesRequestFields(t *testing.T) {
	m := domain.DefaultMaster(domain.StakeholderRequest{ReqTitle: "Gold loan", Owner: "Retail", Priority: "P1", Brief: "Cut TAT"})
	if m.Title != "Gold loan" || m.BU != "Retail" || m.Priority != "P1" || m.Objective != "Cut TAT" {
		t.Fatalf("unexpected master: %+v", m)
	}
	blank := domain.DefaultMaster(domain.StakeholderRequest{})
	if blank.Priority != "P2" || blank.Objective == "" {
		t.Fatalf("expected fallbacks, got %+v", blank)
	}
}
