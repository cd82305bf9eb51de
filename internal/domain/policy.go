package domain

// PolicyInput is the document handed to the policy engine before a workload
// is sealed. It is intentionally small: policy decides on metadata only and
// never sees plaintext.
type PolicyInput struct {
	CloudRegion  string `json:"cloud_region"`
	WorkloadType string `json:"workload_type"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}
