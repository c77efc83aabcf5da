package protocol

import (
	"bytes"
	"mime"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/core/types"
)

type CandidateKind int8

const (
	CandidateIgnore CandidateKind = iota
	CandidateDeploy
	CandidateMint
	CandidateBitmap
	CandidateParcel
)

func (k CandidateKind) String() string {
	switch k {
	case CandidateDeploy:
		return "deploy"
	case CandidateMint:
		return "mint"
	case CandidateBitmap:
		return "bitmap"
	case CandidateParcel:
		return "parcel"
	default:
		return "ignore"
	}
}

// Candidate is the syntactic classification of an inscription. Exactly one payload field
// matching Kind is set.
type Candidate struct {
	Kind CandidateKind

	Deploy *DeployPayload
	Mint   *MintPayload

	// BitmapNumber is the decimal number of a bitmap claim, or the bitmap a parcel subdivides.
	BitmapNumber string

	// ParcelIndex is the decimal index of a parcel within its bitmap.
	ParcelIndex string

	// IgnoreReason explains an ignored classification, for debugging only.
	IgnoreReason string
}

func Ignore(reason string) Candidate {
	return Candidate{Kind: CandidateIgnore, IgnoreReason: reason}
}

var (
	bitmapPattern     = regexp.MustCompile(`^(0|[1-9][0-9]*)\.bitmap$`)
	parcelPattern     = regexp.MustCompile(`^(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.bitmap$`)
	contentRefPattern = regexp.MustCompile(`/content/([0-9a-f]{64}i(?:0|[1-9][0-9]*))`)
)

// maxInspectedSize bounds the content inspected for text patterns. Payloads of the protocol are small.
const maxInspectedSize = 64 * 1024

// textualMimeTypes are non text/* media types inspected by [Classify].
var textualMimeTypes = map[string]struct{}{
	"application/json":       {},
	"application/javascript": {},
	"application/xml":        {},
	"application/xhtml+xml":  {},
	"image/svg+xml":          {},
}

// IsInspectable reports whether content of mimeType is considered by [Classify].
func IsInspectable(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	}
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	_, ok := textualMimeTypes[mediaType]
	return ok
}

// Classify tags an inscription by its content. It is pure and does no I/O.
//
// Structured payloads of the protocol yield deploy or mint candidates, `<n>.bitmap` and
// `<n>.<m>.bitmap` texts yield bitmap and parcel candidates, and any other content that
// references `/content/<inscription id>` yields a mint of that source.
func Classify(id types.InscriptionId, mimeType string, content []byte) Candidate {
	if !IsInspectable(mimeType) {
		return Ignore("non-textual mime type")
	}
	if len(content) == 0 {
		return Ignore("empty content")
	}
	if len(content) > maxInspectedSize {
		return Ignore("content too large")
	}

	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		op, deploy, mint, err := ParsePayload(trimmed)
		switch {
		case err == nil && op == OperationDeploy:
			if deploy.SourceId.IsZero() {
				deploy.SourceId = id
			}
			return Candidate{Kind: CandidateDeploy, Deploy: deploy}
		case err == nil && op == OperationMint:
			return Candidate{Kind: CandidateMint, Mint: mint}
		case errors.Is(err, ErrNotJSON), errors.Is(err, ErrInvalidProtocol):
			// not a payload of the protocol, may still reference a source
		default:
			return Ignore(err.Error())
		}
	}

	text := string(trimmed)
	if m := parcelPattern.FindStringSubmatch(text); m != nil {
		return Candidate{Kind: CandidateParcel, ParcelIndex: m[1], BitmapNumber: m[2]}
	}
	if m := bitmapPattern.FindStringSubmatch(text); m != nil {
		return Candidate{Kind: CandidateBitmap, BitmapNumber: m[1]}
	}

	if m := contentRefPattern.FindSubmatch(content); m != nil {
		sourceId, err := types.NewInscriptionIdFromString(string(m[1]))
		if err != nil {
			return Ignore(err.Error())
		}
		if sourceId == id {
			return Ignore("self reference")
		}
		return Candidate{Kind: CandidateMint, Mint: &MintPayload{SourceId: sourceId}}
	}

	return Ignore("no protocol pattern")
}
