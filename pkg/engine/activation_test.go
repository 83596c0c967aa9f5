package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/riskctl/pkg/model"
)

func TestActivateDomains(t *testing.T) {
	m := loadModel(t, map[string]string{
		model.TriggersDoc: `triggers:
  - when: { uses_ai: true }
    activate: [ai]
  - when: { exposure: public }
    activate: [security, data]
  - when: { uses_ai: true, exposure: public }
    activate: [ai, security]
  - when: {}
    activate: [base_hygiene]
`,
	})

	tests := []struct {
		name  string
		facts string
		want  []string
	}{
		{"nothing answered", "base: {}\n", []string{"base_hygiene"}},
		{"single trigger", "base: {uses_ai: true}\n", []string{"ai", "base_hygiene"}},
		{"union without duplicates", "base: {uses_ai: true, exposure: public}\n", []string{"ai", "base_hygiene", "data", "security"}},
		{"false does not activate", "base: {uses_ai: false}\n", []string{"base_hygiene"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActivateDomains(parseFacts(t, tt.facts), m.TriggerRules)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ActivateDomains() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestActivateDomainsScenario(t *testing.T) {
	m := loadModel(t, map[string]string{
		model.TriggersDoc: "triggers:\n  - when: {uses_ai: true}\n    activate: [ai]\n",
	})
	got := ActivateDomains(parseFacts(t, "base: {uses_ai: true}\n"), m.TriggerRules)
	if diff := cmp.Diff([]string{"ai"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if got := ActivateDomains(parseFacts(t, "base: {}\n"), nil); got == nil || len(got) != 0 {
		t.Errorf("no rules should yield an empty, non-nil list, got %#v", got)
	}
}
