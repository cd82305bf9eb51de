package s3

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"workseald/internal/config"
	"workseald/internal/domain"
)

const awsServiceS3 = "s3"

// Client is a minimal SigV4 S3 client covering the two object operations the
// service needs. Requests are path-style so it also works against MinIO and
// localstack endpoints.
type Client struct {
	endpoint     string
	bucket       string
	region       string
	accessKey    string
	secretKey    string
	sessionToken string
	httpClient   *http.Client
	clock        func() time.Time
}

func New(endpoint, bucket, region, accessKey, secretKey, sessionToken string) *Client {
	return &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		bucket:       bucket,
		region:       region,
		accessKey:    accessKey,
		secretKey:    secretKey,
		sessionToken: sessionToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		clock:        time.Now,
	}
}

func NewFromConfig(cfg config.Config) (*Client, error) {
	if cfg.AWSRegion == "" || cfg.AWSAccessKeyID == "" || cfg.AWSSecretAccessKey == "" {
		return nil, errors.New("AWS_REGION, AWS_ACCESS_KEY_ID, and AWS_SECRET_ACCESS_KEY are required")
	}
	if cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is required")
	}
	endpoint := cfg.S3Endpoint
	if endpoint == "" {
		endpoint = "https://s3." + cfg.AWSRegion + ".amazonaws.com"
	}
	return New(endpoint, cfg.S3Bucket, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSSessionToken), nil
}

func (c *Client) WithClock(clock func() time.Time) *Client {
	if c == nil {
		return nil
	}
	c.clock = clock
	return c
}

// Put uploads data under key with SSE requested, and returns the s3://
// location recorded for the object.
func (c *Client) Put(ctx context.Context, key string, data []byte) (string, error) {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Amz-Server-Side-Encryption", "AES256")
	if _, err := c.do(ctx, http.MethodPut, key, data, headers); err != nil {
		return "", err
	}
	return "s3://" + c.bucket + "/" + key, nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, key, nil, http.Header{})
}

func (c *Client) do(ctx context.Context, method, key string, payload []byte, headers http.Header) ([]byte, error) {
	if c == nil {
		return nil, errors.New("s3 client is nil")
	}
	if c.endpoint == "" || c.bucket == "" || c.region == "" || c.accessKey == "" || c.secretKey == "" {
		return nil, errors.New("s3 client missing configuration")
	}
	if key == "" {
		return nil, errors.New("object key is required")
	}

	objectPath := "/" + c.bucket + "/" + escapeKey(key)
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+objectPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for k, values := range headers {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}

	if c.clock == nil {
		c.clock = time.Now
	}
	now := c.clock().UTC()
	req.Header.Set("X-Amz-Date", now.Format("20060102T150405Z"))
	req.Header.Set("X-Amz-Content-Sha256", sha256Hex(payload))
	if c.sessionToken != "" {
		req.Header.Set("X-Amz-Security-Token", c.sessionToken)
	}

	if err := signRequest(req, objectPath, payload, c.region, c.accessKey, c.secretKey); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return respBody, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: s3 object %q", domain.ErrNotFound, key)
	default:
		return nil, fmt.Errorf("s3 %s %s failed: status %d", method, key, resp.StatusCode)
	}
}

// escapeKey escapes each path segment, keeping the slashes that separate
// them, which is how S3 expects keys in the canonical URI.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func signRequest(req *http.Request, canonicalURI string, payload []byte, region, accessKey, secretKey string) error {
	parsed, err := url.Parse(req.URL.String())
	if err != nil {
		return err
	}
	if parsed.Host == "" {
		return errors.New("s3 host missing")
	}
	req.Header.Set("Host", parsed.Host)

	amzDate := req.Header.Get("X-Amz-Date")
	if amzDate == "" {
		return errors.New("X-Amz-Date is required")
	}
	date := amzDate[:8]

	canonicalHeaders, signedHeaders := buildCanonicalHeaders(req.Header)
	canonicalRequest := strings.Join([]string{
		req.Method,
		canonicalURI,
		"",
		canonicalHeaders,
		signedHeaders,
		req.Header.Get("X-Amz-Content-Sha256"),
	}, "\n")

	scope := date + "/" + region + "/" + awsServiceS3 + "/aws4_request"
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signingKey := deriveSigningKey(secretKey, date, region, awsServiceS3)
	signature := hmacHex(signingKey, []byte(stringToSign))
	req.Header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		accessKey,
		scope,
		signedHeaders,
		signature,
	))
	return nil
}

func buildCanonicalHeaders(headers http.Header) (string, string) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Strings(keys)
	var canonical strings.Builder
	for _, key := range keys {
		values := headers.Values(key)
		for i := range values {
			values[i] = strings.TrimSpace(values[i])
		}
		canonical.WriteString(key)
		canonical.WriteString(":")
		canonical.WriteString(strings.Join(values, ","))
		canonical.WriteString("\n")
	}
	return canonical.String(), strings.Join(keys, ";")
}

func deriveSigningKey(secret, date, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), []byte(date))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func hmacHex(key, data []byte) string {
	return hex.EncodeToString(hmacSHA256(key, data))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var _ domain.ObjectStore = (*Client)(nil)
