package detect

// Override lets an operator adjust how a specific finding is treated
// without touching detector logic: silence a known-acceptable threat ID,
// or re-rate its severity up or down for this deployment.
type Override struct {
	ID     string   // matches Threat.ID exactly
	Ignore bool     // drop the finding entirely
	Rerate Severity // if Ignore is false, replace the finding's severity
}

// ApplyOverrides applies the given per-threat-ID overrides, dropping
// ignored findings and re-rating the rest. Threats with no matching
// override pass through unchanged.
func ApplyOverrides(threats []Threat, overrides []Override) []Threat {
	if len(overrides) == 0 || len(threats) == 0 {
		return threats
	}

	byID := make(map[string]Override, len(overrides))
	for _, o := range overrides {
		byID[o.ID] = o
	}

	kept := make([]Threat, 0, len(threats))
	for _, t := range threats {
		o, has := byID[t.ID]
		if has && o.Ignore {
			continue
		}
		if has {
			t.Severity = o.Rerate
		}
		kept = append(kept, t)
	}
	return kept
}
