// Package matcher implements the request fingerprint and fixture matching
// algorithm described in §4.5.
package matcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/mockforge/mockforge-go/pkg/model"
)

// Fingerprint is a normalized, hashable request identity used for O(1)
// exact lookup and as scoring input for fuzzy matching.
type Fingerprint struct {
	Protocol   model.Protocol
	Operation  string
	Path       string
	Pattern    model.MessagePattern
	Topic      string
	RoutingKey string
	Partition  int32
	QoS        uint8
	BodyHash   string
	HeaderHash string
	IPBucket   string
}

// Key returns a stable string key for O(1) exact-match indexing.
func (f Fingerprint) Key() string {
	return strings.Join([]string{
		string(f.Protocol), f.Operation, f.Path, string(f.Pattern),
		f.Topic, f.RoutingKey, fmt.Sprint(f.Partition), fmt.Sprint(f.QoS),
		f.BodyHash, f.HeaderHash, f.IPBucket,
	}, "\x1f")
}

// defaultFingerprintHeaders declares which headers participate in the
// fingerprint when Build is given no header keys; other headers are ignored
// so two requests differing only in incidental headers still fingerprint
// identically.
var defaultFingerprintHeaders = []string{"content-type", "accept", "x-api-key"}

// Build constructs a Fingerprint from a ProtocolRequest. bucketIP, when
// true, includes a coarse client-IP bucket (the first two octets of a dotted
// IPv4 address; any other address is used whole) in the fingerprint;
// otherwise client IP is ignored.
func Build(req *model.ProtocolRequest, headerKeys []string, bucketIP bool) Fingerprint {
	if headerKeys == nil {
		headerKeys = defaultFingerprintHeaders
	}
	var partition int32
	if req.Partition != nil {
		partition = *req.Partition
	}
	var qos uint8
	if req.QoS != nil {
		qos = *req.QoS
	}

	fp := Fingerprint{
		Protocol:   req.Protocol,
		Operation:  req.Operation,
		Path:       NormalizePath(req.Path),
		Pattern:    req.Pattern,
		Topic:      req.Topic,
		RoutingKey: req.RoutingKey,
		Partition:  partition,
		QoS:        qos,
		BodyHash:   hashBytes(req.Body),
		HeaderHash: hashHeaders(req.Metadata, headerKeys),
	}
	if bucketIP {
		fp.IPBucket = ipBucket(req.ClientIP)
	}
	return fp
}

func hashBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hashHeaders(md *model.Metadata, keys []string) string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	var sb strings.Builder
	for _, k := range sorted {
		v, _ := md.Get(k)
		sb.WriteString(strings.ToLower(k))
		sb.WriteByte('=')
		sb.WriteString(v)
		sb.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:8])
}

func ipBucket(ip string) string {
	parts := strings.SplitN(ip, ".", 3)
	if len(parts) < 2 {
		return ip
	}
	return parts[0] + "." + parts[1]
}

// NormalizePath applies the HTTP legacy path normalization rules (§4.5):
// trim, strip query, collapse repeated '/', drop trailing '/' except root,
// ensure a leading '/'. Idempotent: NormalizePath(NormalizePath(x)) == NormalizePath(x).
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	result := "/" + strings.Join(out, "/")
	return result
}
