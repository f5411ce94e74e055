package dto

// ReloadRuleSetResponse reports the rule set that is active after a reload
type ReloadRuleSetResponse struct {
	Message             string `json:"message"`
	Version             string `json:"version"`
	Fingerprint         string `json:"fingerprint"`
	PreviousFingerprint string `json:"previous_fingerprint"`
	Changed             bool   `json:"changed"`
}

type RefreshSheetRulesResponse struct {
	Message string `json:"message"`
	Enabled bool   `json:"enabled"`
}

// HealthResponse is served by the health endpoint. It never carries rule values.
type HealthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	Version        string `json:"version"`
	Environment    string `json:"environment"`
	RuleSetVersion string `json:"rule_set_version,omitempty"`
	Fingerprint    string `json:"fingerprint,omitempty"`
	Cache          string `json:"cache"`
}
