package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadRulesDefaultsWithoutPath(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if diff := cmp.Diff(DefaultRules(), rules); diff != "" {
		t.Fatalf("unexpected rules (-want +got):\n%s", diff)
	}
}

func TestLoadRulesMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "trigger_status: Ready to convert\nrecord_types:\n  - 012Kc000000tenuIAA\n  - 012Kc000000business\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}

	want := DefaultRules()
	want.TriggerStatus = "Ready to convert"
	want.RecordTypes = []string{"012Kc000000tenuIAA", "012Kc000000business"}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Fatalf("unexpected rules (-want +got):\n%s", diff)
	}
}

func TestParseRulesRejectsSentinelEqualToTrigger(t *testing.T) {
	if _, err := ParseRules([]byte("trigger_status: New\n")); err == nil {
		t.Fatal("expected error when sentinel equals trigger")
	}
}

func TestAllowsRecordType(t *testing.T) {
	rules := DefaultRules()
	if !rules.AllowsRecordType(LoanLeadsRecordType) {
		t.Fatal("expected Loan_Leads record type allowed")
	}
	if rules.AllowsRecordType("012000000000000AAA") {
		t.Fatal("expected other record type rejected")
	}

	rules.RecordTypes = nil
	if !rules.AllowsRecordType("anything") {
		t.Fatal("expected empty allow-list to accept everything")
	}
}
