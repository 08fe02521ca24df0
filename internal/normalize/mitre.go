package normalize

import "strings"

// TechniqueRef is one MITRE technique reference attached to a Finding's
// extra.mitre map (SPEC_FULL.md §11.1). It is purely additive metadata: it
// never influences severity, scoring, or drift.
type TechniqueRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MitreMappings groups the ATT&CK and ATLAS references found for a Finding.
type MitreMappings struct {
	Attack []TechniqueRef `json:"attack,omitempty"`
	Atlas  []TechniqueRef `json:"atlas,omitempty"`
}

// MitreTable is a small static lookup from risk_type/category keywords to
// MITRE ATT&CK/ATLAS techniques, grounded on the teacher's
// internal/finding/mitre.go FindForCategory table but narrowed to the AI
// red-teaming techniques this project's risk types actually name.
type MitreTable struct {
	atlas  map[string]TechniqueRef
	attack map[string]TechniqueRef
}

// DefaultMitreTable returns the built-in keyword -> technique table.
func DefaultMitreTable() *MitreTable {
	return &MitreTable{
		atlas: map[string]TechniqueRef{
			"jailbreak":            {ID: "AML.T0015", Name: "Jailbreak"},
			"prompt_injection":     {ID: "AML.T0051", Name: "Prompt Injection"},
			"data_extraction":      {ID: "AML.T0024", Name: "Data Extraction"},
			"model_inversion":      {ID: "AML.T0043", Name: "Model Inversion"},
			"privilege_escalation": {ID: "AML.T0056", Name: "LLM Privilege Escalation"},
			"denial_of_service":    {ID: "AML.T0054", Name: "LLM Denial of Service"},
			"dos":                  {ID: "AML.T0054", Name: "LLM Denial of Service"},
			"toxicity":             {ID: "AML.T0015", Name: "Jailbreak"},
			"hallucination":        {ID: "AML.T0043", Name: "Model Inversion"},
		},
		attack: map[string]TechniqueRef{
			"data_extraction":         {ID: "T1552", Name: "Unsecured Credentials"},
			"privilege_escalation":    {ID: "T1078", Name: "Valid Accounts"},
			"denial_of_service":       {ID: "T1498", Name: "Network Denial of Service"},
			"information_disclosure": {ID: "T1552", Name: "Unsecured Credentials"},
		},
	}
}

// Lookup returns the MitreMappings for riskType or category (riskType takes
// priority), or nil if neither matches any keyword.
func (t *MitreTable) Lookup(riskType, category string) *MitreMappings {
	key := strings.ToLower(riskType)
	if _, ok := t.atlas[key]; !ok {
		if _, ok := t.attack[key]; !ok {
			key = strings.ToLower(category)
		}
	}

	var out MitreMappings
	if ref, ok := t.atlas[key]; ok {
		out.Atlas = append(out.Atlas, ref)
	}
	if ref, ok := t.attack[key]; ok {
		out.Attack = append(out.Attack, ref)
	}
	if len(out.Atlas) == 0 && len(out.Attack) == 0 {
		return nil
	}
	return &out
}
