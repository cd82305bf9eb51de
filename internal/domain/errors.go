package domain

import "errors"

var (
	ErrUnsupportedCurve = errors.New("unsupported curve")
	ErrMalformedKey     = errors.New("malformed public key")
	ErrIntegrityFailure = errors.New("package signature verification failed")
	ErrPaddingInvalid   = errors.New("invalid padding")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrPolicyDenied     = errors.New("workload denied by policy")
	ErrNotFound         = errors.New("not found")
	ErrPackageExists    = errors.New("package name already in use")
)
