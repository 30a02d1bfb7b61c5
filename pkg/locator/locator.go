// Package locator encodes and decodes the three image reference shapes
// used across the service: persisted record ids, object-store probe
// tokens and inline data references.
package locator

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("malformed locator")

const (
	probePrefix  = "probe:"
	inlinePrefix = "data:"
)

type Kind int

const (
	KindRecord Kind = iota
	KindProbe
	KindInline
)

type Locator struct {
	Kind Kind

	// KindRecord
	RecordID int64

	// KindProbe
	SKU   string
	Index int

	// KindInline
	MediaType string
	Data      []byte
}

// Parse decodes an opaque locator token.
//
// Accepted shapes:
//   - a positive integer: persisted image record id
//   - "probe:<SKU>_<index>": object-store convention probe token;
//     the SKU is everything before the final underscore and may itself
//     contain underscores
//   - "data:[<mediatype>];base64,<payload>": inline image bytes
func Parse(token string) (Locator, error) {
	switch {
	case strings.HasPrefix(token, probePrefix):
		return parseProbe(token)
	case strings.HasPrefix(token, inlinePrefix):
		return parseInline(token)
	default:
		return parseRecordID(token)
	}
}

func parseRecordID(token string) (Locator, error) {
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil || id <= 0 {
		return Locator{}, fmt.Errorf("%w: %q", ErrMalformed, token)
	}
	return Locator{Kind: KindRecord, RecordID: id}, nil
}

func parseProbe(token string) (Locator, error) {
	body := strings.TrimPrefix(token, probePrefix)
	cut := strings.LastIndex(body, "_")
	if cut <= 0 || cut == len(body)-1 {
		return Locator{}, fmt.Errorf("%w: %q", ErrMalformed, token)
	}
	sku := body[:cut]
	idx, err := strconv.Atoi(body[cut+1:])
	if err != nil || idx <= 0 {
		return Locator{}, fmt.Errorf("%w: %q", ErrMalformed, token)
	}
	return Locator{Kind: KindProbe, SKU: sku, Index: idx}, nil
}

func parseInline(token string) (Locator, error) {
	body := strings.TrimPrefix(token, inlinePrefix)
	meta, payload, ok := strings.Cut(body, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return Locator{}, fmt.Errorf("%w: inline reference", ErrMalformed)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return Locator{}, fmt.Errorf("%w: inline reference", ErrMalformed)
	}
	mediaType := strings.TrimSuffix(meta, ";base64")
	return Locator{Kind: KindInline, MediaType: mediaType, Data: data}, nil
}

// FormatProbe builds the probe token for a SKU and sequence index.
func FormatProbe(sku string, index int) string {
	return fmt.Sprintf("%s%s_%d", probePrefix, sku, index)
}

// Inline builds a self-contained data reference from raw image bytes.
func Inline(mediaType string, data []byte) string {
	return inlinePrefix + mediaType + ";base64," +
		base64.StdEncoding.EncodeToString(data)
}

// ObjectURL builds the conventional object-store path for a SKU and
// sequence index: {base}/{SKU}_{index}.jpg.
func ObjectURL(baseURL, sku string, index int) string {
	return fmt.Sprintf("%s/%s_%d.jpg", strings.TrimRight(baseURL, "/"), sku, index)
}

// IsObjectURL reports whether url is a convention path under baseURL.
// The merge engine uses it to split native uploads from probed images.
func IsObjectURL(baseURL, url string) bool {
	base := strings.TrimRight(baseURL, "/")
	if base == "" || !strings.HasPrefix(url, base+"/") {
		return false
	}
	rest := strings.TrimPrefix(url, base+"/")
	name, ok := strings.CutSuffix(rest, ".jpg")
	if !ok || strings.Contains(name, "/") {
		return false
	}
	cut := strings.LastIndex(name, "_")
	if cut <= 0 {
		return false
	}
	idx, err := strconv.Atoi(name[cut+1:])
	return err == nil && idx > 0
}
