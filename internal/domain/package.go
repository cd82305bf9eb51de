package domain

// WorkloadPackage is the wire and storage artifact produced by sealing a
// workload. Key order is irrelevant for storage; signing canonicalizes the
// mapping (sorted keys, signature excluded), and the signature is always the
// last field added.
type WorkloadPackage struct {
	EncryptedData   string  `json:"encrypted_data"`
	ClientPublicKey string  `json:"client_public_key"`
	CloudRegion     string  `json:"cloud_region"`
	WorkloadType    string  `json:"workload_type"`
	Timestamp       float64 `json:"timestamp"`
	EncryptionTime  float64 `json:"encryption_time"`
	Signature       string  `json:"signature,omitempty"`
}

// LargeWorkloadManifest describes a workload whose ciphertext was streamed
// to external storage instead of being embedded inline.
type LargeWorkloadManifest struct {
	ClientPublicKey    string  `json:"client_public_key"`
	CloudRegion        string  `json:"cloud_region"`
	WorkloadType       string  `json:"workload_type"`
	OriginalSize       int64   `json:"original_size"`
	CiphertextLocation string  `json:"ciphertext_location"`
	Timestamp          float64 `json:"timestamp"`
	EncryptionTime     float64 `json:"encryption_time"`
}

// Provenance carries the metadata returned alongside a decrypted payload.
type Provenance struct {
	CloudRegion    string  `json:"cloud_region"`
	WorkloadType   string  `json:"workload_type"`
	Timestamp      float64 `json:"original_timestamp"`
	DecryptionTime float64 `json:"decryption_time"`
}

type DecryptedWorkload struct {
	Data       []byte
	Provenance Provenance
}
