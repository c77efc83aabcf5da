package protocol

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	selfId   = utils.Must(types.NewInscriptionIdFromString("1111111111111111111111111111111111111111111111111111111111111111i0"))
	sourceId = utils.Must(types.NewInscriptionIdFromString("2222222222222222222222222222222222222222222222222222222222222222i0"))
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		content  string
		expected Candidate
	}{
		{
			name:     "deploy with source",
			mimeType: "text/plain;charset=utf-8",
			content:  fmt.Sprintf(`{"p":"brc-420","op":"deploy","id":"%s","name":"Pixel Apes","max":"10","price":"0.00001"}`, sourceId),
			expected: Candidate{Kind: CandidateDeploy, Deploy: &DeployPayload{SourceId: sourceId, Name: "Pixel Apes", Max: 10, Price: 1000}},
		},
		{
			name:     "deploy defaults to own id and numeric fields",
			mimeType: "application/json",
			content:  `  {"p":"BRC-420","op":"Deploy","name":"Free","max":0,"price":0}  `,
			expected: Candidate{Kind: CandidateDeploy, Deploy: &DeployPayload{SourceId: selfId, Name: "Free"}},
		},
		{
			name:     "deploy with invalid price is ignored",
			mimeType: "text/plain",
			content:  `{"p":"brc-420","op":"deploy","name":"x","price":"0.000000001"}`,
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "deploy with negative max is ignored",
			mimeType: "text/plain",
			content:  `{"p":"brc-420","op":"deploy","name":"x","max":"-1"}`,
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "deploy without name is ignored",
			mimeType: "text/plain",
			content:  `{"p":"brc-420","op":"deploy"}`,
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "json mint",
			mimeType: "text/plain",
			content:  fmt.Sprintf(`{"p":"brc-420","op":"mint","id":"%s"}`, sourceId),
			expected: Candidate{Kind: CandidateMint, Mint: &MintPayload{SourceId: sourceId}},
		},
		{
			name:     "recursive mint",
			mimeType: "text/html;charset=utf-8",
			content:  fmt.Sprintf(`<html><body><img src="/content/%s"></body></html>`, sourceId),
			expected: Candidate{Kind: CandidateMint, Mint: &MintPayload{SourceId: sourceId}},
		},
		{
			name:     "recursive svg mint",
			mimeType: "image/svg+xml",
			content:  fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg"><image href="/content/%s"/></svg>`, sourceId),
			expected: Candidate{Kind: CandidateMint, Mint: &MintPayload{SourceId: sourceId}},
		},
		{
			name:     "self reference is ignored",
			mimeType: "text/html",
			content:  fmt.Sprintf(`<img src="/content/%s">`, selfId),
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "other protocol json",
			mimeType: "text/plain",
			content:  `{"p":"brc-20","op":"mint","tick":"ordi","amt":"1000"}`,
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "bitmap",
			mimeType: "text/plain;charset=utf-8",
			content:  "100.bitmap\n",
			expected: Candidate{Kind: CandidateBitmap, BitmapNumber: "100"},
		},
		{
			name:     "bitmap zero",
			mimeType: "text/plain",
			content:  "0.bitmap",
			expected: Candidate{Kind: CandidateBitmap, BitmapNumber: "0"},
		},
		{
			name:     "bitmap with leading zero",
			mimeType: "text/plain",
			content:  "0100.bitmap",
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "bitmap with sign",
			mimeType: "text/plain",
			content:  "-1.bitmap",
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "bitmap with trailing text",
			mimeType: "text/plain",
			content:  "100.bitmap foo",
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "parcel",
			mimeType: "text/plain",
			content:  "0.500.bitmap",
			expected: Candidate{Kind: CandidateParcel, ParcelIndex: "0", BitmapNumber: "500"},
		},
		{
			name:     "parcel with leading zero",
			mimeType: "text/plain",
			content:  "01.500.bitmap",
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "binary mime type",
			mimeType: "image/png",
			content:  "100.bitmap",
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "empty content",
			mimeType: "text/plain",
			content:  "",
			expected: Candidate{Kind: CandidateIgnore},
		},
		{
			name:     "too large",
			mimeType: "text/plain",
			content:  strings.Repeat(" ", maxInspectedSize) + "1.bitmap",
			expected: Candidate{Kind: CandidateIgnore},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := Classify(selfId, tt.mimeType, []byte(tt.content))
			require.Equal(t, tt.expected.Kind, actual.Kind, "ignore reason: %s", actual.IgnoreReason)
			if actual.Kind == CandidateIgnore {
				assert.NotEmpty(t, actual.IgnoreReason)
				return
			}
			actual.IgnoreReason = ""
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestIsInspectable(t *testing.T) {
	tests := map[string]bool{
		"text/plain":               true,
		"text/plain;charset=utf-8": true,
		"TEXT/HTML; charset=UTF-8": true,
		"application/json":         true,
		"image/svg+xml":            true,
		"image/png":                false,
		"video/mp4":                false,
		"":                         false,
	}
	for mimeType, expected := range tests {
		t.Run(mimeType, func(t *testing.T) {
			assert.Equal(t, expected, IsInspectable(mimeType))
		})
	}
}
