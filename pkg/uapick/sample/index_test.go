package sample

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/uapick/pkg/uapick/internalerr"
)

func TestEncodeDecodeIndex(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeIndex(&buf, OffsetIndex{0, 57, 114}); err != nil {
		t.Fatalf("EncodeIndex: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[0,57,114]" {
		t.Errorf("unexpected encoding %q", got)
	}

	idx, err := DecodeIndex(&buf)
	if err != nil {
		t.Fatalf("DecodeIndex: %v", err)
	}
	if !reflect.DeepEqual(idx, OffsetIndex{0, 57, 114}) {
		t.Errorf("decoded %v", idx)
	}
}

func TestDecodeEmptyArray(t *testing.T) {
	idx, err := DecodeIndex(strings.NewReader("[]\n"))
	if err != nil {
		t.Fatalf("empty array is a valid index: %v", err)
	}
	if len(idx) != 0 {
		t.Errorf("expected no offsets, got %v", idx)
	}
}

func TestDecodeCorruptIndex(t *testing.T) {
	cases := map[string]string{
		"empty":     "",
		"null":      "null",
		"object":    `{"a":1}`,
		"strings":   `["0","5"]`,
		"floats":    `[0, 1.5]`,
		"negative":  `[0, -4]`,
		"truncated": `[0, 12,`,
		"trailing":  `[0] [1]`,
		"php":       "<?php return [0, 12];",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeIndex(strings.NewReader(input))
			if !errors.Is(err, internalerr.ErrCorruptIndex) {
				t.Errorf("expected ErrCorruptIndex, got %v", err)
			}
		})
	}
}

func TestPairFor(t *testing.T) {
	cases := []struct {
		category  string
		data      string
		index     string
		wantLabel string
	}{
		{CategoryAll, "ua.txt", "ua.idx.json", CategoryAll},
		{"", "ua.txt", "ua.idx.json", CategoryAll},
		{"mobile", "ua-mobile.txt", "ua-mobile.idx.json", "mobile"},
		{"desktop", "ua-desktop.txt", "ua-desktop.idx.json", "desktop"},
	}

	for _, tc := range cases {
		p := PairFor("out", tc.category)
		if p.DataPath != filepath.Join("out", tc.data) || p.IndexPath != filepath.Join("out", tc.index) {
			t.Errorf("PairFor(%q) = %+v", tc.category, p)
		}
		if p.Category != tc.wantLabel {
			t.Errorf("PairFor(%q).Category = %q, want %q", tc.category, p.Category, tc.wantLabel)
		}
	}
}
